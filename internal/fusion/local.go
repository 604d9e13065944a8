package fusion

import (
	"context"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// SessionQuerier reads stored training sessions.
type SessionQuerier interface {
	QueryTrainingSessions(ctx context.Context, start, end time.Time) ([]models.TrainingSession, error)
}

// LocalSource serves sessions imported into the database.
type LocalSource struct {
	db    SessionQuerier
	clock func() time.Time
}

// NewLocalSource creates a training source backed by stored imports.
func NewLocalSource(db SessionQuerier, clock func() time.Time) *LocalSource {
	if clock == nil {
		clock = time.Now
	}
	return &LocalSource{db: db, clock: clock}
}

// Sessions returns stored sessions started within the last days.
func (l *LocalSource) Sessions(ctx context.Context, days int) ([]models.TrainingSession, error) {
	now := l.clock()
	return l.db.QueryTrainingSessions(ctx, now.Add(-time.Duration(days)*day), now.Add(day))
}
