package repository

import (
	"context"
	"time"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-auth-oasis/activitymap"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityEventModel is the Bun model for recorded activity events.
type ActivityEventModel struct {
	bun.BaseModel `bun:"table:activity_events"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	AccountID  string         `bun:"account_id,nullzero"`
	MemberID   string         `bun:"member_id,nullzero"`
	LoginPath  string         `bun:"login_path,nullzero"`
	Kind       string         `bun:"kind,nullzero"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

// ActivityEventRepository persists oasis activity events. It satisfies
// oasis.ActivitySink.
type ActivityEventRepository struct {
	db   *bun.DB
	opts []activitymap.Option
}

var _ oasis.ActivitySink = (*ActivityEventRepository)(nil)

// NewActivityEventRepository creates a new repository. opts tune how
// event metadata is normalized before it is stored.
func NewActivityEventRepository(db *bun.DB, opts ...activitymap.Option) *ActivityEventRepository {
	return &ActivityEventRepository{db: db, opts: opts}
}

// Record implements oasis.ActivitySink.
func (r *ActivityEventRepository) Record(ctx context.Context, event oasis.ActivityEvent) error {
	normalized := activitymap.Normalize(event, r.opts...)

	metadata := normalized.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	model := &ActivityEventModel{
		ID:         uuid.New(),
		EventType:  normalized.Verb,
		AccountID:  event.AccountID,
		MemberID:   event.MemberID,
		LoginPath:  string(event.Path),
		Kind:       string(event.Kind),
		Metadata:   metadata,
		OccurredAt: normalized.OccurredAt.UTC(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		Exec(ctx)

	return err
}

// FindByAccountID returns the events of an account, newest first.
func (r *ActivityEventRepository) FindByAccountID(ctx context.Context, accountID string) ([]oasis.ActivityEvent, error) {
	var models []ActivityEventModel
	err := r.db.NewSelect().
		Model(&models).
		Where("account_id = ?", accountID).
		Order("occurred_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toActivityEvents(models), nil
}

// FindRecent returns up to limit events, newest first.
func (r *ActivityEventRepository) FindRecent(ctx context.Context, limit int) ([]oasis.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []ActivityEventModel
	err := r.db.NewSelect().
		Model(&models).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toActivityEvents(models), nil
}

func toActivityEvents(models []ActivityEventModel) []oasis.ActivityEvent {
	events := make([]oasis.ActivityEvent, 0, len(models))
	for _, m := range models {
		events = append(events, oasis.ActivityEvent{
			EventType:  oasis.ActivityEventType(m.EventType),
			AccountID:  m.AccountID,
			MemberID:   m.MemberID,
			Path:       oasis.LoginPath(m.LoginPath),
			Kind:       oasis.ErrorKind(m.Kind),
			Metadata:   m.Metadata,
			OccurredAt: m.OccurredAt,
		})
	}
	return events
}
