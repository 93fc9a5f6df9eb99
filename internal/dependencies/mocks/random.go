package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/random"
)

// MockRandom hands out queued tokens first, then sequential ones
// ("00000001", "00000002", ... padded to the requested length), so tokens
// stay unique and predictable in tests
type MockRandom struct {
	mu     sync.Mutex
	queued []string
	issued int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued token, or the next sequential one
func (r *MockRandom) Token(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queued) > 0 {
		tok := r.queued[0]
		r.queued = r.queued[1:]
		return tok
	}
	r.issued++
	return fmt.Sprintf("%0*d", n, r.issued)
}

// QueueTokens makes the next calls to Token return tokens, in order
func (r *MockRandom) QueueTokens(tokens ...string) {
	r.mu.Lock()
	r.queued = append(r.queued, tokens...)
	r.mu.Unlock()
}

// Issued returns how many sequential tokens were generated
func (r *MockRandom) Issued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issued
}
