package fitness

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"go.opentelemetry.io/otel/attribute"
)

type UserInput struct {
	Name     string
	Email    string
	Password string
	Gender   Gender
}

func (in *UserInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in *UserInput) validate(requirePassword bool) error {
	if in.Name == "" {
		return invalid("user name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("email [%s] is not valid", in.Email)
	}
	if requirePassword && in.Password == "" {
		return invalid("password is required")
	}
	if in.Gender != "" && !in.Gender.Valid() {
		return invalid("unknown gender [%s]", in.Gender)
	}
	return nil
}

// CreateUser registers a regular user.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	return s.registerUser(ctx, in, RoleUser)
}

// CreateAdmin registers a user with the ADMIN role.
func (s *Service) CreateAdmin(ctx context.Context, in UserInput) (*User, error) {
	return s.registerUser(ctx, in, RoleAdmin)
}

func (s *Service) registerUser(ctx context.Context, in UserInput, role Role) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("role", string(role)))

	in.normalize()
	if err := in.validate(true); err != nil {
		return nil, err
	}

	passwordHash, err := pkg.HashPasswordWithCost(in.Password, s.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Gender:       in.Gender,
		Role:         role,
	}
	err = s.store.InTx(ctx, func(tx Store) error {
		if err := ensureUniqueEmail(ctx, tx, user.Email, ""); err != nil {
			return err
		}
		return tx.AddUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser changes profile fields. Password and role are not changed here.
func (s *Service) UpdateUser(ctx context.Context, actor Actor, id string, in UserInput) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	if err := authorizeOwner(actor, UserOwner(id)); err != nil {
		return nil, err
	}

	in.normalize()
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var user *User
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := ensureUser(ctx, tx, id)
		if err != nil {
			return err
		}
		user = existing
		if err := ensureUniqueEmail(ctx, tx, in.Email, id); err != nil {
			return err
		}

		user.Name = in.Name
		user.Email = in.Email
		if in.Gender != "" {
			user.Gender = in.Gender
		}
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user with the exercises and routines they own.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.users.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	if err := authorizeOwner(actor, UserOwner(id)); err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := ensureUser(ctx, tx, id); err != nil {
			return err
		}
		return cascadeDelete(ctx, tx, kindUser, id)
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Authenticate checks the credentials and returns the matching user.
// Unknown email and wrong password fail the same way.
func (s *Service) Authenticate(ctx context.Context, email, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.users.authenticate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil || !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return nil, unauthorized("wrong email or password")
	}
	return user, nil
}
