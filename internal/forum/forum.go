// Package forum holds the authorization-gated mutation rules of the forum:
// ownership checks, vote uniqueness and cascading deletion.
//
// Every operation returns *apperr.Error values; the package performs no
// logging and never retries a failed store write.
package forum

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

type settings struct {
	now   func() time.Time
	newID func() string
}

func defaultSettings() settings {
	return settings{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Option customises a ContentStore or VoteLedger.
type Option func(*settings)

// WithClock sets the source of creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator sets how new entity identifiers are produced.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) { s.newID = gen }
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// storeError classifies an error coming back from the store. Errors that
// already carry a kind pass through untouched.
func storeError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(err, "store operation failed")
}
