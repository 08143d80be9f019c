package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the part of pgxpool.Pool and pgx.Tx the repo uses.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Repo is the PostgreSQL fitness.Store.
type Repo struct {
	db querier
	// nil inside a transaction
	pool *pgxpool.Pool
}

var _ fitness.Store = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{
		db:   pool,
		pool: pool,
	}
}

func (r *Repo) InTx(ctx context.Context, fn func(tx fitness.Store) error) (err error) {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(&Repo{db: tx})
}

// dbErr maps driver errors to the store failure kinds.
func dbErr(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, fitness.ErrNotFound)
	}
	if pkg.IsUniqueViolationError(err) {
		return fmt.Errorf("%s [%s]: %w", what, pkg.ViolatedConstraint(err), fitness.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affectedOne(what string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, fitness.ErrNotFound)
	}
	return nil
}

func ownerFromColumn(userID *string) fitness.Owner {
	if userID == nil {
		return fitness.GlobalOwner()
	}
	return fitness.UserOwner(*userID)
}

func musclesToColumn(muscles []fitness.Muscle) []string {
	column := make([]string, 0, len(muscles))
	for _, m := range muscles {
		column = append(column, string(m))
	}
	return column
}

func musclesFromColumn(column []string) []fitness.Muscle {
	muscles := make([]fitness.Muscle, 0, len(column))
	for _, m := range column {
		muscles = append(muscles, fitness.Muscle(m))
	}
	return muscles
}

func toJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}
