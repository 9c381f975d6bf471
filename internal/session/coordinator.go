package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// RefreshFunc exchanges the expiring credential for a fresh one. It is
// expected to hit the backend's refresh endpoint exactly once per call.
type RefreshFunc func(ctx context.Context) error

// Coordinator serializes credential refresh across concurrent API calls.
// However many callers observe an expired credential at the same time, at
// most one refresh request is in flight; every caller waits on that one
// request and observes its outcome.
//
// One Coordinator is constructed per client process and injected into the
// HTTP layer.
type Coordinator struct {
	refresh RefreshFunc

	group singleflight.Group

	mu         sync.Mutex
	refreshing bool
}

// NewCoordinator creates a coordinator around the given refresh call.
func NewCoordinator(refresh RefreshFunc) *Coordinator {
	return &Coordinator{refresh: refresh}
}

// Await joins the in-flight refresh if one exists, otherwise starts one.
// It returns once that single refresh settles, with its outcome. A nil
// return means the credential was renewed and the caller may replay its
// original request.
func (c *Coordinator) Await(ctx context.Context) error {
	_, err, shared := c.group.Do("refresh", func() (any, error) {
		c.setRefreshing(true)
		defer c.setRefreshing(false)

		log.Debug().Msg("session refresh started")
		if err := c.refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("session refresh failed")
			return nil, err
		}
		log.Debug().Msg("session refresh succeeded")
		return nil, nil
	})
	if shared {
		log.Debug().Msg("session refresh outcome shared with queued caller")
	}
	return err
}

// Refreshing reports whether a refresh call is currently outstanding.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

func (c *Coordinator) setRefreshing(v bool) {
	c.mu.Lock()
	c.refreshing = v
	c.mu.Unlock()
}
