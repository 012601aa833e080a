package utils

import (
	"context"
	"sync"
	"time"
)

// RevocationList holds logged-out tokens until their natural expiry.
type RevocationList struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{tokens: make(map[string]time.Time)}
}

func (rl *RevocationList) Add(token string, expiry time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens[token] = expiry
}

func (rl *RevocationList) IsRevoked(token string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	expiry, exists := rl.tokens[token]
	return exists && time.Now().Before(expiry)
}

// Sweep drops entries whose token has already expired and returns how many were removed.
func (rl *RevocationList) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for token, expiry := range rl.tokens {
		if !now.Before(expiry) {
			delete(rl.tokens, token)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (rl *RevocationList) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.Sweep(time.Now()); n > 0 {
				InfoLogger.Printf("Removed %d expired revoked tokens", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
