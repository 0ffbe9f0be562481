package template

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// shortLen is how much of a token goes into an object name.
const shortLen = 8

const maxTokenAttempts = 32

// Tokens issues identifiers that never repeat within a run. Uniqueness is
// enforced on the short prefix used in object names, which implies
// uniqueness of the full token.
type Tokens struct {
	mu     sync.Mutex
	rand   io.Reader
	issued map[string]struct{}
}

// NewTokens returns a generator drawing randomness from r. A nil r uses the
// uuid package's default source; a seeded reader makes runs reproducible.
func NewTokens(r io.Reader) *Tokens {
	return &Tokens{rand: r, issued: make(map[string]struct{})}
}

// Next returns a fresh token.
func (t *Tokens) Next() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < maxTokenAttempts; i++ {
		id, err := t.newUUID()
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		token := strings.ReplaceAll(id.String(), "-", "")
		short := token[:shortLen]
		if _, dup := t.issued[short]; dup {
			continue
		}
		t.issued[short] = struct{}{}
		return token, nil
	}
	return "", fmt.Errorf("generating token: no unique value after %d attempts", maxTokenAttempts)
}

// Issued returns how many tokens have been handed out.
func (t *Tokens) Issued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.issued)
}

func (t *Tokens) newUUID() (uuid.UUID, error) {
	if t.rand == nil {
		return uuid.NewRandom()
	}
	return uuid.NewRandomFromReader(t.rand)
}
