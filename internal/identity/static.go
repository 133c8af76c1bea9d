package identity

import (
	"context"
	"strings"
	"sync"
)

// StaticProvider resolves tokens from an in-memory table. Used in
// development and in handler tests; never in production.
type StaticProvider struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{tokens: make(map[string]Identity)}
}

func (p *StaticProvider) Register(token string, id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = id
}

func (p *StaticProvider) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	_ = ctx
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	p.mu.RLock()
	id, ok := p.tokens[rawToken]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidToken
	}
	out := id
	return &out, nil
}
