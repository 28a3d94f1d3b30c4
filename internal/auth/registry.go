package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var limit = big.NewInt(int64(len(alphabet)))

// Registry issues and validates the opaque access tokens gating privileged
// operations. A token is returned exactly once at issuance; afterwards only
// its usage metadata is visible. Validate is deliberately not pure: every
// successful check stamps last-used and bumps the request counter.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*model.TokenInfo

	randSource io.Reader
	length     int
	now        func() time.Time
}

// NewRegistry creates a registry issuing tokens of the given length drawn
// from a 62-character alphabet; 32 characters carry ~190 bits of entropy.
func NewRegistry(randSource io.Reader, length int) *Registry {
	if randSource == nil {
		randSource = rand.Reader
	}
	if length < 22 {
		// below 22 characters the alphabet yields fewer than 128 bits
		length = 32
	}

	return &Registry{
		tokens:     map[string]*model.TokenInfo{},
		randSource: randSource,
		length:     length,
		now:        time.Now,
	}
}

func (r *Registry) Issue() (string, error) {
	token, err := r.generateRandomString(r.length)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; ok {
		return "", model.ErrAlreadyExists
	}
	r.tokens[token] = &model.TokenInfo{CreatedAt: r.now()}

	return token, nil
}

func (r *Registry) Validate(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.tokens[token]
	if !ok {
		return false
	}

	ts := r.now()
	info.LastUsed = &ts
	info.Requests++

	return true
}

func (r *Registry) Revoke(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return false
	}
	delete(r.tokens, token)

	return true
}

// Infos returns the usage metadata of every issued token, oldest first.
// Token values themselves are never listed.
func (r *Registry) Infos() []model.TokenInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.TokenInfo, 0, len(r.tokens))
	for _, info := range r.tokens {
		res = append(res, *info)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})

	return res
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tokens)
}

func (r *Registry) generateRandomString(n int) (string, error) {
	b := make([]byte, n)

	for i := range b {
		num, err := rand.Int(r.randSource, limit)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[num.Int64()]
	}

	return string(b), nil
}
