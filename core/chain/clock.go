package chain

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultBlockInterval is the cadence at which the height counter advances.
const DefaultBlockInterval = time.Second

// HeightStore persists the block counter between runs.
type HeightStore interface {
	ChainHeight() (uint64, error)
	SetChainHeight(height uint64) error
}

// Clock is the block-height source for mission time. The engines never read a
// wall clock; time advances only through this counter, which is persisted so
// a restart resumes where the previous run stopped instead of rewinding open
// missions.
type Clock struct {
	store  HeightStore
	height atomic.Uint64
}

// NewClock loads the persisted height and returns a clock resuming from it.
func NewClock(store HeightStore) (*Clock, error) {
	height, err := store.ChainHeight()
	if err != nil {
		return nil, err
	}
	c := &Clock{store: store}
	c.height.Store(height)
	return c, nil
}

// Now returns the current block height.
func (c *Clock) Now() uint64 {
	return c.height.Load()
}

// Advance bumps the counter by one and persists it.
func (c *Clock) Advance() error {
	next := c.height.Add(1)
	return c.store.SetChainHeight(next)
}

// Run advances the counter on the given interval until the context is
// cancelled. Persistence failures stop the loop; a clock that cannot save its
// height must not keep drifting away from the stored value.
func (c *Clock) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultBlockInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Advance(); err != nil {
				return err
			}
		}
	}
}
