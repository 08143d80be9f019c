package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const workoutColumns = `id, date, user_id, session_id, routine_id, exercises, note`

const workoutFilterWhere = `
	WHERE user_id = $1
	  AND ($2::timestamptz IS NULL OR date >= $2)
	  AND ($3::timestamptz IS NULL OR date <= $3)
`

func scanWorkout(row rowScanner) (*fitness.Workout, error) {
	var (
		workout   fitness.Workout
		exercises []byte
	)
	err := row.Scan(
		&workout.ID,
		&workout.Date,
		&workout.UserID,
		&workout.SessionID,
		&workout.RoutineID,
		&exercises,
		&workout.Note,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(exercises, &workout.Exercises); err != nil {
		return nil, fmt.Errorf("workout [%s] exercises: %w", workout.ID, err)
	}
	if workout.Exercises == nil {
		workout.Exercises = []fitness.WorkoutExercise{}
	}
	return &workout, nil
}

func rows2workouts(rows pgx.Rows) ([]fitness.Workout, error) {
	defer rows.Close()
	workouts := []fitness.Workout{}
	for rows.Next() {
		workout, err := scanWorkout(rows)
		if err != nil {
			return nil, dbErr("workouts [rows scan]", err)
		}
		workouts = append(workouts, *workout)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("workouts [rows error]", err)
	}
	return workouts, nil
}

func (r *Repo) GetWorkout(ctx context.Context, id string) (_ *fitness.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	workout, err := scanWorkout(r.db.QueryRow(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE id = $1`, id))
	if err != nil {
		return nil, dbErr("workout ["+id+"]", err)
	}
	return workout, nil
}

func (r *Repo) ListWorkouts(ctx context.Context, filter fitness.WorkoutFilter, page fitness.Page) (_ []fitness.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", filter.UserID))
	if filter.From != nil {
		span.SetAttributes(attribute.String("from", filter.From.String()))
	}
	if filter.To != nil {
		span.SetAttributes(attribute.String("to", filter.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts`+workoutFilterWhere+`
		ORDER BY date DESC, id
		OFFSET $4 LIMIT $5`,
		filter.UserID,
		filter.From,
		filter.To,
		page.Skip,
		page.Limit,
	)
	if err != nil {
		return nil, dbErr("workouts [query]", err)
	}
	return rows2workouts(rows)
}

func (r *Repo) CountWorkouts(ctx context.Context, filter fitness.WorkoutFilter) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workouts`+workoutFilterWhere,
		filter.UserID,
		filter.From,
		filter.To,
	).Scan(&count)
	if err != nil {
		return 0, dbErr("count workouts", err)
	}
	return count, nil
}

func (r *Repo) LastWorkoutForSession(ctx context.Context, sessionID string) (_ *fitness.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.last_for_session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	workout, err := scanWorkout(r.db.QueryRow(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE session_id = $1 ORDER BY date DESC, id LIMIT 1`,
		sessionID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("last workout", err)
	}
	return workout, nil
}

func (r *Repo) AddWorkout(ctx context.Context, workout *fitness.Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercises, err := toJSONB(workout.Exercises)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO workouts
			    (id, date, user_id, session_id, routine_id, exercises, note)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		`,
		workout.ID,
		workout.Date,
		workout.UserID,
		workout.SessionID,
		workout.RoutineID,
		string(exercises),
		workout.Note,
	)
	if err != nil {
		return dbErr("add workout", err)
	}
	return nil
}

func (r *Repo) UpdateWorkout(ctx context.Context, workout *fitness.Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workout.ID))

	exercises, err := toJSONB(workout.Exercises)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE workouts
			SET date = $2, user_id = $3, session_id = $4, routine_id = $5, exercises = $6::jsonb, note = $7
			WHERE id = $1
		`,
		workout.ID,
		workout.Date,
		workout.UserID,
		workout.SessionID,
		workout.RoutineID,
		string(exercises),
		workout.Note,
	)
	if err != nil {
		return dbErr("update workout", err)
	}
	return affectedOne("workout ["+workout.ID+"]", tag)
}

func (r *Repo) DeleteWorkout(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete workout", err)
	}
	return affectedOne("workout ["+id+"]", tag)
}

func (r *Repo) DeleteWorkoutsByRoutine(ctx context.Context, routineID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.workouts.delete_by_routine")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE routine_id = $1`, routineID)
	if err != nil {
		return 0, dbErr("delete workouts by routine", err)
	}
	span.SetAttributes(attribute.Int64("deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
