package provider

import (
	"sync"
	"time"
)

// SessionTokenValidityMargin is the minimum remaining lifetime for a cached
// session token to be served.
const SessionTokenValidityMargin = 60 * time.Second

// SessionToken is a short-lived bearer exchanged for a long-lived OAuth token.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// SessionTokenCache maps OAuth tokens to their current session token. It is
// shared across sessions; concurrent misses may refresh redundantly and the
// last writer wins.
type SessionTokenCache struct {
	mu      sync.Mutex
	entries map[string]SessionToken
	now     func() time.Time
}

func NewSessionTokenCache() *SessionTokenCache {
	return &SessionTokenCache{
		entries: map[string]SessionToken{},
		now:     time.Now,
	}
}

// Get returns the cached token when at least SessionTokenValidityMargin of
// its lifetime is left.
func (c *SessionTokenCache) Get(oauthToken string) (SessionToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[oauthToken]
	if !ok {
		return SessionToken{}, false
	}
	if entry.ExpiresAt.Sub(c.now()) < SessionTokenValidityMargin {
		return SessionToken{}, false
	}
	return entry, true
}

func (c *SessionTokenCache) Put(oauthToken string, token SessionToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[oauthToken] = token
}

func (c *SessionTokenCache) Invalidate(oauthToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, oauthToken)
}
