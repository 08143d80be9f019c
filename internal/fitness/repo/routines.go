package repo

import (
	"context"
	"errors"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const routineColumns = `id, name, description, sessions, iterator, active, difficulty, user_id`

func scanRoutine(row rowScanner) (*fitness.Routine, error) {
	var (
		routine fitness.Routine
		userID  *string
	)
	err := row.Scan(
		&routine.ID,
		&routine.Name,
		&routine.Description,
		&routine.Sessions,
		&routine.Iterator,
		&routine.Active,
		&routine.Difficulty,
		&userID,
	)
	if err != nil {
		return nil, err
	}
	if routine.Sessions == nil {
		routine.Sessions = []string{}
	}
	routine.Owner = ownerFromColumn(userID)
	return &routine, nil
}

func rows2routines(rows pgx.Rows) ([]fitness.Routine, error) {
	defer rows.Close()
	routines := []fitness.Routine{}
	for rows.Next() {
		routine, err := scanRoutine(rows)
		if err != nil {
			return nil, dbErr("routines [rows scan]", err)
		}
		routines = append(routines, *routine)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("routines [rows error]", err)
	}
	return routines, nil
}

func (r *Repo) GetRoutine(ctx context.Context, id string) (_ *fitness.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", id))

	routine, err := scanRoutine(r.db.QueryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = $1`, id))
	if err != nil {
		return nil, dbErr("routine ["+id+"]", err)
	}
	return routine, nil
}

func (r *Repo) findRoutine(ctx context.Context, what, where string, args ...any) (*fitness.Routine, error) {
	routine, err := scanRoutine(r.db.QueryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr(what, err)
	}
	return routine, nil
}

func (r *Repo) FindRoutineByName(ctx context.Context, owner fitness.Owner, name string) (_ *fitness.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.find_by_name")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("owner", owner.String()))

	return r.findRoutine(ctx, "routine by name", `user_id IS NOT DISTINCT FROM $1 AND name = $2`, owner.Ptr(), name)
}

func (r *Repo) FindActiveRoutine(ctx context.Context, userID string) (_ *fitness.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.find_active")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	return r.findRoutine(ctx, "active routine", `user_id = $1 AND active`, userID)
}

func (r *Repo) ListRoutines(ctx context.Context, filter fitness.RoutineFilter, page fitness.Page) (_ []fitness.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("owner", filter.Owner.String()),
		attribute.Int("skip", page.Skip),
		attribute.Int("limit", page.Limit),
	)

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+routineColumns+`
			FROM routines
			WHERE user_id IS NOT DISTINCT FROM $1
			ORDER BY name, id
			OFFSET $2 LIMIT $3
		`,
		filter.Owner.Ptr(),
		page.Skip,
		page.Limit,
	)
	if err != nil {
		return nil, dbErr("routines [query]", err)
	}
	return rows2routines(rows)
}

func (r *Repo) CountRoutines(ctx context.Context, filter fitness.RoutineFilter) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM routines WHERE user_id IS NOT DISTINCT FROM $1`,
		filter.Owner.Ptr(),
	).Scan(&count)
	if err != nil {
		return 0, dbErr("count routines", err)
	}
	return count, nil
}

func (r *Repo) ListRoutinesBySession(ctx context.Context, sessionID string) (_ []fitness.Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.list_by_session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+routineColumns+` FROM routines WHERE sessions @> ARRAY[$1::text] ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, dbErr("routines by session [query]", err)
	}
	return rows2routines(rows)
}

func (r *Repo) AddRoutine(ctx context.Context, routine *fitness.Routine) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO routines
			    (id, name, description, sessions, iterator, active, difficulty, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
		routine.ID,
		routine.Name,
		routine.Description,
		routine.Sessions,
		routine.Iterator,
		routine.Active,
		routine.Difficulty,
		routine.Owner.Ptr(),
	)
	if err != nil {
		return dbErr("add routine", err)
	}
	return nil
}

func (r *Repo) UpdateRoutine(ctx context.Context, routine *fitness.Routine) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("routine.id", routine.ID),
		attribute.Int("iterator", routine.Iterator),
		attribute.Bool("active", routine.Active),
	)

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE routines
			SET name = $2, description = $3, sessions = $4, iterator = $5,
			    active = $6, difficulty = $7, user_id = $8
			WHERE id = $1
		`,
		routine.ID,
		routine.Name,
		routine.Description,
		routine.Sessions,
		routine.Iterator,
		routine.Active,
		routine.Difficulty,
		routine.Owner.Ptr(),
	)
	if err != nil {
		return dbErr("update routine", err)
	}
	return affectedOne("routine ["+routine.ID+"]", tag)
}

func (r *Repo) DeleteRoutine(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete routine", err)
	}
	return affectedOne("routine ["+id+"]", tag)
}

func (r *Repo) DeleteRoutinesByOwner(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.routines.delete_by_owner")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	tag, err := r.db.Exec(ctx, `DELETE FROM routines WHERE user_id = $1`, userID)
	if err != nil {
		return 0, dbErr("delete routines by owner", err)
	}
	span.SetAttributes(attribute.Int64("deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
