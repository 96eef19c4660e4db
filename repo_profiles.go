package devconnect

import (
	"context"
	"slices"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles stores developer profiles keyed by their owner
type Profiles interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Profile, columns ...string) (*Profile, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type profiles struct {
	db  *bun.DB
	now Clock
}

func NewProfilesRepository(db *bun.DB) Profiles {
	return &profiles{db: db, now: defaultClock}
}

func withOwner(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("User")
}

func (r *profiles) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return r.GetByUserTx(ctx, r.db, userID)
}

func (r *profiles) GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, error) {
	record := &Profile{}
	err := tx.NewSelect().
		Model(record).
		Apply(withOwner).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	record.normalize()
	return record, nil
}

func (r *profiles) List(ctx context.Context) ([]*Profile, error) {
	records := make([]*Profile, 0)
	err := r.db.NewSelect().
		Model(&records).
		Apply(withOwner).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	for _, p := range records {
		p.normalize()
	}
	return records, nil
}

func (r *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	now := r.now()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.normalize()

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, mapStoreError(err, repository.DetectDriver(r.db))
	}

	return r.GetByUserTx(ctx, tx, record.UserID)
}

// UpdateTx writes the given columns, or every column when none are named
func (r *profiles) UpdateTx(ctx context.Context, tx bun.IDB, record *Profile, columns ...string) (*Profile, error) {
	record.UpdatedAt = r.now()
	record.normalize()

	q := tx.NewUpdate().Model(record).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(slices.Clip(columns), "updated_at")...)
	} else {
		q = q.ExcludeColumn("id", "user_id", "created_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return r.GetByUserTx(ctx, tx, record.UserID)
}

func (r *profiles) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Profile)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
