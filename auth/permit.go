package auth

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPermits bounds concurrent credential hashing and blocking
// store work so a burst of logins cannot starve request handling.
const DefaultPermits = 64

// PermitPool bounds concurrency for blocking operations. Acquire is
// context-aware so a cancelled request gives up its place in line.
type PermitPool struct {
	sem *semaphore.Weighted
}

// NewPermitPool returns a pool with up to permits concurrent holders.
func NewPermitPool(permits int) *PermitPool {
	if permits <= 0 {
		permits = DefaultPermits
	}
	return &PermitPool{
		sem: semaphore.NewWeighted(int64(permits)),
	}
}

// Acquire blocks until a permit is available or ctx is done.
func (p *PermitPool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release returns a permit to the pool.
func (p *PermitPool) Release() {
	p.sem.Release(1)
}
