// Package session tracks verification attempts in flight between
// registration and alert fetch.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/wanel/kyxgate/internal/decision"
)

// ErrNotFound is returned when no session exists for an external ID.
var ErrNotFound = errors.New("session not found")

// Kind discriminates the two verification resource kinds.
type Kind string

const (
	KindAddress  Kind = "address"  // KYA withdrawal-attempt checks
	KindTransfer Kind = "transfer" // KYT transfer checks
)

// Session is the server-side record of one registered verification
// attempt, keyed by ExternalID. It is a closed record: every field that can
// exist at any protocol phase is declared here.
type Session struct {
	ExternalID string
	Kind       Kind

	// Params is the subject handed to the risk decision function when
	// alerts are fetched. Risk is never evaluated at registration time.
	Params decision.Params

	RegisteredAt time.Time

	// CompletesAt is the epoch second before which status checks report
	// not-ready. Zero means the session was ready at registration.
	CompletesAt int64

	// UpdatedAt is the readiness timestamp (RFC 3339). Set at most once;
	// empty means analysis has not completed.
	UpdatedAt string

	// ExpiresAt is the absolute deadline after which the sweeper removes
	// the session regardless of readiness.
	ExpiresAt time.Time
}

// Ready reports whether analysis has completed for this session.
func (s *Session) Ready() bool { return s.UpdatedAt != "" }

// Expired reports whether the session has passed its deadline.
func (s *Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// Store persists sessions. Implementations must make CheckReady atomic per
// key: the read-then-conditionally-set transition must never produce two
// different UpdatedAt values, and reads concurrent with deletion resolve to
// either the pre-deletion record or ErrNotFound.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, externalID string) (*Session, error)

	// CheckReady applies the readiness transition: if the session is not
	// yet ready and now has reached CompletesAt, UpdatedAt is set to now
	// (first writer wins). The returned session reflects the state after
	// the check; repeated calls on a ready session return the same
	// UpdatedAt.
	CheckReady(ctx context.Context, externalID string, now time.Time) (*Session, error)

	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, externalID string) error

	// DeleteExpired removes every session whose ExpiresAt has passed and
	// returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Timestamp formats a readiness timestamp the way the wire protocol
// expects it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
