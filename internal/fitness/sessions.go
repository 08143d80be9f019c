package fitness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type SessionInput struct {
	Name      string
	Exercises []SessionExercise
}

func (in *SessionInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("session name is required")
	}
	for i, entry := range in.Exercises {
		if entry.ExerciseID == "" {
			return invalid("session exercise #%d has no exercise", i)
		}
	}
	return nil
}

func (s *Service) CreateSession(ctx context.Context, in SessionInput) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.sessions.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := in.validate(); err != nil {
		return nil, err
	}

	session := &Session{
		ID:        NewID(),
		Name:      in.Name,
		Exercises: nonNilEntries(in.Exercises),
	}
	err = s.store.InTx(ctx, func(tx Store) error {
		if err := deriveSession(ctx, tx, session); err != nil {
			return err
		}
		return tx.AddSession(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	span.SetAttributes(attribute.String("session.id", session.ID))
	return session, nil
}

// GetSession returns the session with its exercises expanded.
func (s *Service) GetSession(ctx context.Context, id string) (_ *SessionView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return expandSession(ctx, s.store, session)
}

// UpdateSession replaces name and exercise list, then re-derives the
// session and every routine containing it.
func (s *Service) UpdateSession(ctx context.Context, id string, in SessionInput) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.sessions.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	if err := in.validate(); err != nil {
		return nil, err
	}

	var session *Session
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		existing.Name = in.Name
		existing.Exercises = nonNilEntries(in.Exercises)
		if err := deriveSession(ctx, tx, existing); err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, existing); err != nil {
			return err
		}
		session = existing
		return resyncRoutinesWithSession(ctx, tx, id, false)
	})
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// DeleteSession removes the session and pulls it from every routine.
func (s *Service) DeleteSession(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.GetSession(ctx, id); err != nil {
			return err
		}
		return cascadeDelete(ctx, tx, kindSession, id)
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// expandSession replaces exercise references with the exercises.
// References to exercises that no longer exist expand to nil.
func expandSession(ctx context.Context, st Store, session *Session) (*SessionView, error) {
	view := &SessionView{
		ID:         session.ID,
		Name:       session.Name,
		Exercises:  make([]SessionExerciseView, 0, len(session.Exercises)),
		Muscles:    session.Muscles,
		Difficulty: session.Difficulty,
	}
	for _, entry := range session.Exercises {
		exercise, err := st.GetExercise(ctx, entry.ExerciseID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get exercise: %w", err)
		}
		view.Exercises = append(view.Exercises, SessionExerciseView{
			Exercise: exercise,
			Sets:     entry.Sets,
			DropSet:  entry.DropSet,
		})
	}
	return view, nil
}

func nonNilEntries(entries []SessionExercise) []SessionExercise {
	if entries == nil {
		return []SessionExercise{}
	}
	return entries
}
