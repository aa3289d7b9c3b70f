package quota

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/voxpage/voxpage/internal/pkg/api"
)

// ErrLimitReached indicates the guest used up the daily quota
var ErrLimitReached = errors.New("daily conversion limit reached")

// DB provides conversion counts
type DB interface {
	CountConversionsSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// Gate limits guest conversions per calendar day.
// All anonymous callers share the guest sentinel owner, so the count is pooled
// across visitors - the observed behavior of the system, kept as is.
// Registered users always pass.
type Gate struct {
	db       DB
	limit    int
	location *time.Location
}

// NewGate creates the gate. A nil location means server local time
func NewGate(db DB, limit int, location *time.Location) (*Gate, error) {
	if db == nil {
		return nil, errors.New("no DB")
	}
	if limit < 1 {
		return nil, errors.Errorf("wrong limit %d", limit)
	}
	if location == nil {
		location = time.Local
	}
	return &Gate{db: db, limit: limit, location: location}, nil
}

// Check returns ErrLimitReached if the caller may not convert now
func (g *Gate) Check(ctx context.Context, userID int64) error {
	if userID != api.GuestID {
		return nil
	}
	count, err := g.Usage(ctx)
	if err != nil {
		return errors.Wrap(err, "can't count usage")
	}
	if count >= g.limit {
		return ErrLimitReached
	}
	return nil
}

// Usage returns today's guest conversion count
func (g *Gate) Usage(ctx context.Context) (int, error) {
	return g.db.CountConversionsSince(ctx, api.GuestID, midnight(time.Now(), g.location))
}

// Limit returns the configured daily guest limit
func (g *Gate) Limit() int {
	return g.limit
}

func midnight(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
