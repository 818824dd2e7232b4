package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NormalizeToken canonicalises a payment token symbol. Symbols are stored
// upper-cased so lookups are case-insensitive.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("registry: token symbol required")
	}
	return trimmed, nil
}

// TokenList is the allow-list of payment tokens the settlement ledgers accept.
// Mutation requires the owner role; reads are shared by all ledgers.
type TokenList struct {
	mu     sync.RWMutex
	owner  [20]byte
	tokens map[string]struct{}
}

// NewTokenList constructs an empty allow-list owned by the supplied address.
func NewTokenList(owner [20]byte) (*TokenList, error) {
	if owner == ([20]byte{}) {
		return nil, fmt.Errorf("registry: token list owner required")
	}
	return &TokenList{owner: owner, tokens: make(map[string]struct{})}, nil
}

// Add registers a payment token. Owner only; re-adding is a no-op.
func (l *TokenList) Add(caller [20]byte, symbol string) error {
	normalized, err := NormalizeToken(symbol)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return fmt.Errorf("registry: caller is not the token list owner")
	}
	l.tokens[normalized] = struct{}{}
	return nil
}

// Remove drops a payment token from the allow-list. Owner only.
func (l *TokenList) Remove(caller [20]byte, symbol string) error {
	normalized, err := NormalizeToken(symbol)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return fmt.Errorf("registry: caller is not the token list owner")
	}
	delete(l.tokens, normalized)
	return nil
}

// Contains reports whether the symbol is an accepted payment token.
func (l *TokenList) Contains(symbol string) bool {
	normalized, err := NormalizeToken(symbol)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tokens[normalized]
	return ok
}

// Symbols returns the accepted tokens in sorted order.
func (l *TokenList) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.tokens))
	for symbol := range l.tokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
