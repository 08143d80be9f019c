package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Schema creates every table and index of the store. It is idempotent.
//
//go:embed schema.sql
var Schema string

// Migrate applies Schema in a single transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "db.migrate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
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

	if _, err = tx.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	log.Debugln("db schema applied")
	return nil
}
