package repo

import (
	"context"
	"errors"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const userColumns = `id, name, email, password_hash, gender, role`

func scanUser(row rowScanner) (*fitness.User, error) {
	user := &fitness.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Gender,
		&user.Role,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (_ *fitness.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, dbErr("user ["+id+"]", err)
	}
	return user, nil
}

func (r *Repo) FindUserByEmail(ctx context.Context, email string) (_ *fitness.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.users.find_by_email")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("user by email", err)
	}
	return user, nil
}

func (r *Repo) AddUser(ctx context.Context, user *fitness.User) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.users.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO users
			    (id, name, email, password_hash, gender, role)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Gender,
		user.Role,
	)
	if err != nil {
		return dbErr("add user", err)
	}
	return nil
}

func (r *Repo) UpdateUser(ctx context.Context, user *fitness.User) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", user.ID))

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE users
			SET name = $2, email = $3, password_hash = $4, gender = $5, role = $6
			WHERE id = $1
		`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Gender,
		user.Role,
	)
	if err != nil {
		return dbErr("update user", err)
	}
	return affectedOne("user ["+user.ID+"]", tag)
}

func (r *Repo) DeleteUser(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.users.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete user", err)
	}
	return affectedOne("user ["+id+"]", tag)
}
