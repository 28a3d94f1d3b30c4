package calendar

import (
	"testing"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRule_RoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 18, 9, 30, 0, 0, time.Local)

	rule, err := buildRule(model.RepeatTypeEveryDay, start)
	require.NoError(t, err)
	require.NotEmpty(t, rule)

	occs, err := occurrences(rule, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, occs, 3)
	assert.True(t, occs[0].Equal(start))
	assert.True(t, occs[1].Equal(start.AddDate(0, 0, 1)))
	assert.True(t, occs[2].Equal(start.AddDate(0, 0, 2)))
}

func TestBuildRule_None(t *testing.T) {
	rule, err := buildRule(model.RepeatTypeNone, time.Now())
	require.NoError(t, err)
	assert.Empty(t, rule)
}

func TestBuildRule_Weekly(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	rule, err := buildRule(model.RepeatTypeEveryWeek, start)
	require.NoError(t, err)

	occs, err := occurrences(rule, start, start.AddDate(0, 0, 21))
	require.NoError(t, err)
	require.Len(t, occs, 4)
	for i, occ := range occs {
		assert.True(t, occ.Equal(start.AddDate(0, 0, 7*i)), "occurrence %d", i)
	}
}

func TestOccurrences_BadRule(t *testing.T) {
	_, err := occurrences("not a rule", time.Now(), time.Now().AddDate(0, 0, 1))
	assert.Error(t, err)
}
