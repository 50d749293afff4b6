// Package persistence implements the per-user hysteresis filter that requires
// a deviation to repeat on consecutive analyses before it is trusted.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// DefaultThreshold is the number of consecutive non-none candidates after
// which a deviation is persistent.
const DefaultThreshold = 2

// ErrEmptyUserID is returned when a state operation is keyed by an empty user.
var ErrEmptyUserID = errors.New("persistence: empty user id")

// UpdateFunc mutates a user's state in place. Returning an error aborts the
// update and leaves stored state untouched.
type UpdateFunc func(state *analytics.PersistenceState) error

// StateStore holds PersistenceState keyed by user id. Update must apply fn
// atomically per user; updates for different users must not block each other.
type StateStore interface {
	// Update loads (or zero-initializes) the user's state, applies fn and saves
	// the result. It returns the saved state.
	Update(ctx context.Context, userID string, fn UpdateFunc) (analytics.PersistenceState, error)
	// Get returns the stored state, or nil when the user has none.
	Get(ctx context.Context, userID string) (*analytics.PersistenceState, error)
}

// Tracker applies the hysteresis rule over a StateStore.
type Tracker struct {
	store             StateStore
	threshold         int
	requireSameSignal bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithThreshold sets the consecutive-count threshold. Values below 1 are ignored.
func WithThreshold(n int) Option {
	return func(t *Tracker) {
		if n >= 1 {
			t.threshold = n
		}
	}
}

// WithRequireSameSignal controls whether a candidate that differs from the
// previous non-none signal restarts the run. It is on by default; off, any
// run of non-none candidates counts.
func WithRequireSameSignal(on bool) Option {
	return func(t *Tracker) { t.requireSameSignal = on }
}

// NewTracker returns a Tracker backed by store.
func NewTracker(store StateStore, opts ...Option) *Tracker {
	t := &Tracker{store: store, threshold: DefaultThreshold, requireSameSignal: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Threshold returns the configured consecutive-count threshold.
func (t *Tracker) Threshold() int { return t.threshold }

// Update records candidate for userID and reports whether the deviation is now
// persistent. A none candidate resets the run and returns false.
func (t *Tracker) Update(ctx context.Context, userID string, candidate analytics.DeviationSignal) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUserID
	}
	state, err := t.store.Update(ctx, userID, func(s *analytics.PersistenceState) error {
		switch {
		case candidate == analytics.DeviationNone:
			s.ConsecutiveCount = 0
		case t.requireSameSignal && s.ConsecutiveCount > 0 && s.LastSignal != candidate:
			s.ConsecutiveCount = 1
		default:
			s.ConsecutiveCount++
		}
		s.LastSignal = candidate
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update persistence state for %s: %w", userID, err)
	}
	return candidate != analytics.DeviationNone && state.ConsecutiveCount >= t.threshold, nil
}

// State returns the stored state for userID, or nil when none exists.
func (t *Tracker) State(ctx context.Context, userID string) (*analytics.PersistenceState, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return t.store.Get(ctx, userID)
}
