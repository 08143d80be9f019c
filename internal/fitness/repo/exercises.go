package repo

import (
	"context"
	"errors"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const exerciseColumns = `id, name, muscles, difficulty, user_id`

// global exercises plus the ones of $1
const exerciseFilterWhere = `
	WHERE (user_id IS NULL OR user_id = $1)
	  AND ($2::text = '' OR difficulty = $2)
	  AND ($3::text = '' OR muscles @> ARRAY[$3::text])
	  AND ($4::text = '' OR name ~* $4)
`

func scanExercise(row rowScanner) (*fitness.Exercise, error) {
	var (
		exercise fitness.Exercise
		muscles  []string
		userID   *string
	)
	err := row.Scan(
		&exercise.ID,
		&exercise.Name,
		&muscles,
		&exercise.Difficulty,
		&userID,
	)
	if err != nil {
		return nil, err
	}
	exercise.Muscles = musclesFromColumn(muscles)
	exercise.Owner = ownerFromColumn(userID)
	return &exercise, nil
}

func rows2exercises(rows pgx.Rows) ([]fitness.Exercise, error) {
	defer rows.Close()
	exercises := []fitness.Exercise{}
	for rows.Next() {
		exercise, err := scanExercise(rows)
		if err != nil {
			return nil, dbErr("exercises [rows scan]", err)
		}
		exercises = append(exercises, *exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("exercises [rows error]", err)
	}
	return exercises, nil
}

func (r *Repo) GetExercise(ctx context.Context, id string) (_ *fitness.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	exercise, err := scanExercise(r.db.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id))
	if err != nil {
		return nil, dbErr("exercise ["+id+"]", err)
	}
	return exercise, nil
}

func (r *Repo) FindExerciseByName(ctx context.Context, owner fitness.Owner, name string) (_ *fitness.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.find_by_name")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("owner", owner.String()))

	exercise, err := scanExercise(r.db.QueryRow(
		ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE user_id IS NOT DISTINCT FROM $1 AND name = $2`,
		owner.Ptr(),
		name,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("exercise by name", err)
	}
	return exercise, nil
}

func (r *Repo) ListExercises(ctx context.Context, filter fitness.ExerciseFilter, page fitness.Page) (_ []fitness.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", filter.UserID),
		attribute.Int("skip", page.Skip),
		attribute.Int("limit", page.Limit),
	)

	rows, err := r.db.Query(
		ctx,
		`SELECT `+exerciseColumns+` FROM exercises`+exerciseFilterWhere+`
		ORDER BY name, id
		OFFSET $5 LIMIT $6`,
		filter.UserID,
		filter.Difficulty,
		filter.Muscle,
		filter.NamePattern,
		page.Skip,
		page.Limit,
	)
	if err != nil {
		return nil, dbErr("exercises [query]", err)
	}
	return rows2exercises(rows)
}

func (r *Repo) CountExercises(ctx context.Context, filter fitness.ExerciseFilter) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM exercises`+exerciseFilterWhere,
		filter.UserID,
		filter.Difficulty,
		filter.Muscle,
		filter.NamePattern,
	).Scan(&count)
	if err != nil {
		return 0, dbErr("count exercises", err)
	}
	return count, nil
}

func (r *Repo) AddExercise(ctx context.Context, exercise *fitness.Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO exercises
			    (id, name, muscles, difficulty, user_id)
			VALUES ($1, $2, $3, $4, $5)
		`,
		exercise.ID,
		exercise.Name,
		musclesToColumn(exercise.Muscles),
		exercise.Difficulty,
		exercise.Owner.Ptr(),
	)
	if err != nil {
		return dbErr("add exercise", err)
	}
	return nil
}

func (r *Repo) UpdateExercise(ctx context.Context, exercise *fitness.Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE exercises
			SET name = $2, muscles = $3, difficulty = $4, user_id = $5
			WHERE id = $1
		`,
		exercise.ID,
		exercise.Name,
		musclesToColumn(exercise.Muscles),
		exercise.Difficulty,
		exercise.Owner.Ptr(),
	)
	if err != nil {
		return dbErr("update exercise", err)
	}
	return affectedOne("exercise ["+exercise.ID+"]", tag)
}

func (r *Repo) DeleteExercise(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete exercise", err)
	}
	return affectedOne("exercise ["+id+"]", tag)
}

func (r *Repo) DeleteExercisesByOwner(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.exercises.delete_by_owner")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercises WHERE user_id = $1`, userID)
	if err != nil {
		return 0, dbErr("delete exercises by owner", err)
	}
	span.SetAttributes(attribute.Int64("deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
