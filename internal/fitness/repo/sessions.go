package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const sessionColumns = `id, name, exercises, muscles, difficulty`

func scanSession(row rowScanner) (*fitness.Session, error) {
	var (
		session   fitness.Session
		exercises []byte
		muscles   []string
	)
	err := row.Scan(
		&session.ID,
		&session.Name,
		&exercises,
		&muscles,
		&session.Difficulty,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(exercises, &session.Exercises); err != nil {
		return nil, fmt.Errorf("session [%s] exercises: %w", session.ID, err)
	}
	if session.Exercises == nil {
		session.Exercises = []fitness.SessionExercise{}
	}
	session.Muscles = musclesFromColumn(muscles)
	return &session, nil
}

func rows2sessions(rows pgx.Rows) ([]fitness.Session, error) {
	defer rows.Close()
	sessions := []fitness.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, dbErr("sessions [rows scan]", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("sessions [rows error]", err)
	}
	return sessions, nil
}

func (r *Repo) GetSession(ctx context.Context, id string) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	session, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		return nil, dbErr("session ["+id+"]", err)
	}
	return session, nil
}

func (r *Repo) ListSessionsByExercise(ctx context.Context, exerciseID string) (_ []fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.sessions.list_by_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exerciseID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+sessionColumns+`
			FROM sessions
			WHERE exercises @> jsonb_build_array(jsonb_build_object('exercise', $1::text))
			ORDER BY id
		`,
		exerciseID,
	)
	if err != nil {
		return nil, dbErr("sessions by exercise [query]", err)
	}
	return rows2sessions(rows)
}

func (r *Repo) AddSession(ctx context.Context, session *fitness.Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercises, err := toJSONB(session.Exercises)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO sessions
			    (id, name, exercises, muscles, difficulty)
			VALUES ($1, $2, $3::jsonb, $4, $5)
		`,
		session.ID,
		session.Name,
		string(exercises),
		musclesToColumn(session.Muscles),
		session.Difficulty,
	)
	if err != nil {
		return dbErr("add session", err)
	}
	return nil
}

func (r *Repo) UpdateSession(ctx context.Context, session *fitness.Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.sessions.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", session.ID))

	exercises, err := toJSONB(session.Exercises)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE sessions
			SET name = $2, exercises = $3::jsonb, muscles = $4, difficulty = $5
			WHERE id = $1
		`,
		session.ID,
		session.Name,
		string(exercises),
		musclesToColumn(session.Muscles),
		session.Difficulty,
	)
	if err != nil {
		return dbErr("update session", err)
	}
	return affectedOne("session ["+session.ID+"]", tag)
}

func (r *Repo) DeleteSession(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete session", err)
	}
	return affectedOne("session ["+id+"]", tag)
}
