package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/certverify/internal/common"
	"github.com/joseph-ayodele/certverify/internal/entity"
)

const ownersTable = "owners"

var ownerColumns = []string{"id", "name", "created_at"}

type OwnerRepository interface {
	Get(ctx context.Context, id string) (*entity.Owner, error)
	Upsert(ctx context.Context, owner *entity.Owner) (*entity.Owner, error)
	List(ctx context.Context) ([]*entity.Owner, error)
}

type ownerRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewOwnerRepository(db *DB, logger *slog.Logger) OwnerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ownerRepository{db: db, logger: logger}
}

func (r *ownerRepository) Get(ctx context.Context, id string) (*entity.Owner, error) {
	b := entsql.Dialect(r.db.Dialect())
	query, args := b.Select(ownerColumns...).
		From(b.Table(ownersTable)).
		Where(entsql.EQ("id", id)).
		Query()

	owners, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get owner", "owner_id", id, "error", err)
		return nil, common.Persistence("get owner", err)
	}
	if len(owners) == 0 {
		return nil, common.NotFound(fmt.Sprintf("owner %s not found", id), nil)
	}
	return owners[0], nil
}

// Upsert creates the owner or renames an existing one. CreatedAt is kept from
// the first insert.
func (r *ownerRepository) Upsert(ctx context.Context, owner *entity.Owner) (*entity.Owner, error) {
	if strings.TrimSpace(owner.ID) == "" {
		return nil, common.InvalidInput("owner id is required")
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now()
	}

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(ownersTable).
		Columns(ownerColumns...).
		Values(owner.ID, owner.Name, formatTime(owner.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("name")
			}),
		).
		Query()

	var res sql.Result
	if err := r.db.Driver().Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to upsert owner", "owner_id", owner.ID, "error", err)
		return nil, common.Persistence("upsert owner", err)
	}
	r.logger.Info("owner saved", "owner_id", owner.ID)
	return r.Get(ctx, owner.ID)
}

func (r *ownerRepository) List(ctx context.Context) ([]*entity.Owner, error) {
	b := entsql.Dialect(r.db.Dialect())
	query, args := b.Select(ownerColumns...).
		From(b.Table(ownersTable)).
		OrderBy("created_at", "id").
		Query()

	owners, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list owners", "error", err)
		return nil, common.Persistence("list owners", err)
	}
	return owners, nil
}

func (r *ownerRepository) query(ctx context.Context, query string, args []any) ([]*entity.Owner, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver().Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Owner
	for rows.Next() {
		var (
			o       entity.Owner
			created sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.Name, &created); err != nil {
			return nil, err
		}
		t, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		o.CreatedAt = t
		out = append(out, &o)
	}
	return out, rows.Err()
}
