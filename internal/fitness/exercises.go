package fitness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type ExerciseInput struct {
	Name       string
	Muscles    []Muscle
	Difficulty Difficulty
	Owner      Owner
}

func (in *ExerciseInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("exercise name is required")
	}
	if !in.Difficulty.Valid() {
		return invalid("unknown difficulty [%s]", in.Difficulty)
	}
	for _, m := range in.Muscles {
		if !m.Valid() {
			return invalid("unknown muscle [%s]", m)
		}
	}
	return nil
}

// ExerciseQuery is the caller side of ExerciseFilter: Text is plain search text.
type ExerciseQuery struct {
	UserID     string
	Difficulty Difficulty
	Muscle     Muscle
	Text       string
}

func (s *Service) CreateExercise(ctx context.Context, actor Actor, in ExerciseInput) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.exercises.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("owner", in.Owner.String()))

	if err := authorizeOwner(actor, in.Owner); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	exercise := &Exercise{
		ID:         NewID(),
		Name:       in.Name,
		Muscles:    nonNilMuscles(in.Muscles),
		Difficulty: in.Difficulty,
		Owner:      in.Owner,
	}
	err = s.store.InTx(ctx, func(tx Store) error {
		if err := ensureOwner(ctx, tx, exercise.Owner); err != nil {
			return err
		}
		if err := ensureUniqueExerciseName(ctx, tx, exercise.Owner, exercise.Name, ""); err != nil {
			return err
		}
		return tx.AddExercise(ctx, exercise)
	})
	if err != nil {
		return nil, fmt.Errorf("create exercise: %w", err)
	}

	span.SetAttributes(attribute.String("exercise.id", exercise.ID))
	return exercise, nil
}

func (s *Service) GetExercise(ctx context.Context, id string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	exercise, err := s.store.GetExercise(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return exercise, nil
}

// ListExercises returns a page of exercises sorted by name, and the total
// number of matches. Global exercises are always included.
func (s *Service) ListExercises(ctx context.Context, query ExerciseQuery, page Page) (_ []Exercise, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", query.UserID),
		attribute.String("difficulty", string(query.Difficulty)),
		attribute.String("muscle", string(query.Muscle)),
	)

	if query.Difficulty != "" && !query.Difficulty.Valid() {
		return nil, 0, invalid("unknown difficulty [%s]", query.Difficulty)
	}
	if query.Muscle != "" && !query.Muscle.Valid() {
		return nil, 0, invalid("unknown muscle [%s]", query.Muscle)
	}
	if query.UserID != "" {
		if _, err := ensureUser(ctx, s.store, query.UserID); err != nil {
			return nil, 0, err
		}
	}

	filter := ExerciseFilter{
		UserID:      query.UserID,
		Difficulty:  query.Difficulty,
		Muscle:      query.Muscle,
		NamePattern: FoldedNamePattern(query.Text),
	}
	exercises, err := s.store.ListExercises(ctx, filter, s.page(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}
	total, err = s.store.CountExercises(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count exercises: %w", err)
	}
	return exercises, total, nil
}

// UpdateExercise replaces the exercise fields. When muscles or difficulty
// change, every session using the exercise is re-derived, with their routines.
func (s *Service) UpdateExercise(ctx context.Context, actor Actor, id string, in ExerciseInput) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	if err := authorizeOwner(actor, in.Owner); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var exercise *Exercise
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetExercise(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}
		if err := ensureOwner(ctx, tx, in.Owner); err != nil {
			return err
		}
		if err := ensureUniqueExerciseName(ctx, tx, in.Owner, in.Name, id); err != nil {
			return err
		}

		aggregatesChanged := existing.Difficulty != in.Difficulty || !slices.Equal(existing.Muscles, in.Muscles)
		existing.Name = in.Name
		existing.Muscles = nonNilMuscles(in.Muscles)
		existing.Difficulty = in.Difficulty
		existing.Owner = in.Owner
		if err := tx.UpdateExercise(ctx, existing); err != nil {
			return err
		}
		exercise = existing

		if aggregatesChanged {
			return resyncSessionsWithExercise(ctx, tx, id, false)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update exercise: %w", err)
	}
	return exercise, nil
}

// DeleteExercise removes the exercise and pulls it from the sessions using it.
func (s *Service) DeleteExercise(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetExercise(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}
		return cascadeDelete(ctx, tx, kindExercise, id)
	})
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return nil
}

func nonNilMuscles(muscles []Muscle) []Muscle {
	if muscles == nil {
		return []Muscle{}
	}
	return muscles
}
