package devconnect

import (
	"context"
	"slices"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Posts stores member posts with their likes and comments inline
type Posts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Post, error)
	List(ctx context.Context) ([]*Post, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Post) (*Post, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Post, columns ...string) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
}

type posts struct {
	db  *bun.DB
	now Clock
}

func NewPostsRepository(db *bun.DB) Posts {
	return &posts{db: db, now: defaultClock}
}

func (r *posts) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *posts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Post, error) {
	record := &Post{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	record.normalize()
	return record, nil
}

// List returns every post, newest first
func (r *posts) List(ctx context.Context) ([]*Post, error) {
	records := make([]*Post, 0)
	err := r.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.rowid DESC").
		Scan(ctx)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	for _, p := range records {
		p.normalize()
	}
	return records, nil
}

func (r *posts) CreateTx(ctx context.Context, tx bun.IDB, record *Post) (*Post, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}
	record.normalize()

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, mapStoreError(err, repository.DetectDriver(r.db))
	}

	return record, nil
}

func (r *posts) UpdateTx(ctx context.Context, tx bun.IDB, record *Post, columns ...string) error {
	record.normalize()

	q := tx.NewUpdate().Model(record).WherePK()
	if len(columns) > 0 {
		q = q.Column(slices.Clip(columns)...)
	} else {
		q = q.ExcludeColumn("id", "user_id", "created_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return nil
}

func (r *posts) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Post)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (r *posts) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Post)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
