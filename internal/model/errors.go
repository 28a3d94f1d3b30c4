package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNoRecord = errors.New("no record")
var ErrAlreadyExists = errors.New("entity already exists")

// ValidationError reports missing or malformed fields on a create or update.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}
