package fitness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type WorkoutInput struct {
	// Date defaults to now when zero.
	Date      time.Time
	UserID    string
	SessionID string
	// RoutineID is optional on log, the first routine containing the session is used.
	RoutineID string
	Exercises []WorkoutExercise
	Note      string
}

func (in *WorkoutInput) validate() error {
	if in.UserID == "" {
		return invalid("workout user is required")
	}
	if in.SessionID == "" {
		return invalid("workout session is required")
	}
	for i, entry := range in.Exercises {
		if entry.ExerciseID == "" {
			return invalid("workout exercise #%d has no exercise", i)
		}
		for j, set := range entry.Sets {
			if set.Repetitions < 0 || set.Weight < 0 {
				return invalid("workout exercise #%d set #%d is negative", i, j)
			}
		}
	}
	return nil
}

// checkWorkoutRefs verifies that the user, the session and every exercise exist.
func checkWorkoutRefs(ctx context.Context, st Store, in WorkoutInput) error {
	if _, err := ensureUser(ctx, st, in.UserID); err != nil {
		return err
	}
	if _, err := st.GetSession(ctx, in.SessionID); err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	ids := make([]string, 0, len(in.Exercises))
	for _, entry := range in.Exercises {
		ids = append(ids, entry.ExerciseID)
	}
	_, err := ensureExercises(ctx, st, ids)
	return err
}

// resolveWorkoutRoutine picks the routine a logged session advances. Without
// an explicit routine the user's own routines win over others containing the
// session, the active one first.
func resolveWorkoutRoutine(ctx context.Context, st Store, routineID, sessionID, userID string) (*Routine, error) {
	if routineID != "" {
		routine, err := st.GetRoutine(ctx, routineID)
		if err != nil {
			return nil, fmt.Errorf("get routine: %w", err)
		}
		if !slices.Contains(routine.Sessions, sessionID) {
			return nil, invalid("session [%s] is not part of routine [%s]", sessionID, routineID)
		}
		return routine, nil
	}

	routines, err := st.ListRoutinesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list routines by session: %w", err)
	}
	if len(routines) == 0 {
		return nil, notFound("routine containing session [%s]", sessionID)
	}

	best := 0
	rank := func(r Routine) int {
		switch {
		case r.Owner == UserOwner(userID) && r.Active:
			return 2
		case r.Owner == UserOwner(userID):
			return 1
		}
		return 0
	}
	for i := range routines {
		if rank(routines[i]) > rank(routines[best]) {
			best = i
		}
	}
	return &routines[best], nil
}

// LogWorkout stores a performed session and advances its routine, atomically.
func (s *Service) LogWorkout(ctx context.Context, actor Actor, in WorkoutInput) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.log")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", in.UserID),
		attribute.String("session.id", in.SessionID),
	)

	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, UserOwner(in.UserID)); err != nil {
		return nil, err
	}

	workout := &Workout{
		ID:        NewID(),
		Date:      in.Date,
		UserID:    in.UserID,
		SessionID: in.SessionID,
		Exercises: nonNilWorkoutEntries(in.Exercises),
		Note:      in.Note,
	}
	if workout.Date.IsZero() {
		workout.Date = s.Now()
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		if err := checkWorkoutRefs(ctx, tx, in); err != nil {
			return err
		}
		routine, err := resolveWorkoutRoutine(ctx, tx, in.RoutineID, in.SessionID, in.UserID)
		if err != nil {
			return err
		}

		AdvanceIterator(routine)
		if err := tx.UpdateRoutine(ctx, routine); err != nil {
			return fmt.Errorf("advance routine %s: %w", routine.ID, err)
		}

		workout.RoutineID = routine.ID
		return tx.AddWorkout(ctx, workout)
	})
	if err != nil {
		return nil, fmt.Errorf("log workout: %w", err)
	}

	span.SetAttributes(
		attribute.String("workout.id", workout.ID),
		attribute.String("routine.id", workout.RoutineID),
	)
	return workout, nil
}

// GetWorkout returns the workout with session and exercises expanded.
func (s *Service) GetWorkout(ctx context.Context, id string) (_ *WorkoutView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	workout, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}

	view := &WorkoutView{
		ID:        workout.ID,
		Date:      workout.Date,
		UserID:    workout.UserID,
		RoutineID: workout.RoutineID,
		Exercises: make([]WorkoutExerciseView, 0, len(workout.Exercises)),
		Note:      workout.Note,
	}
	session, err := s.store.GetSession(ctx, workout.SessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	view.Session = session

	for _, entry := range workout.Exercises {
		exercise, err := s.store.GetExercise(ctx, entry.ExerciseID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get exercise: %w", err)
		}
		view.Exercises = append(view.Exercises, WorkoutExerciseView{
			Exercise: exercise,
			Sets:     entry.Sets,
		})
	}
	return view, nil
}

// ListWorkouts lists the workouts of a user, newest first.
func (s *Service) ListWorkouts(ctx context.Context, filter WorkoutFilter, page Page) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", filter.UserID))

	if _, err := ensureUser(ctx, s.store, filter.UserID); err != nil {
		return nil, 0, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, invalid("end date is before start date")
	}

	workouts, err := s.store.ListWorkouts(ctx, filter, s.page(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list workouts: %w", err)
	}
	total, err = s.store.CountWorkouts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count workouts: %w", err)
	}
	return workouts, total, nil
}

// LastWorkout returns the most recent workout of the session, or nil if it
// was never performed.
func (s *Service) LastWorkout(ctx context.Context, sessionID string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.last")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	workout, err := s.store.LastWorkoutForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("last workout: %w", err)
	}
	return workout, nil
}

// UpdateWorkout edits a logged workout. The routine stays as logged and
// is not advanced again.
func (s *Service) UpdateWorkout(ctx context.Context, actor Actor, id string, in WorkoutInput) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, UserOwner(in.UserID)); err != nil {
		return nil, err
	}

	var workout *Workout
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetWorkout(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, UserOwner(existing.UserID)); err != nil {
			return err
		}
		if err := checkWorkoutRefs(ctx, tx, in); err != nil {
			return err
		}

		if !in.Date.IsZero() {
			existing.Date = in.Date
		}
		existing.UserID = in.UserID
		existing.SessionID = in.SessionID
		existing.Exercises = nonNilWorkoutEntries(in.Exercises)
		existing.Note = in.Note
		if err := tx.UpdateWorkout(ctx, existing); err != nil {
			return err
		}
		workout = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update workout: %w", err)
	}
	return workout, nil
}

func (s *Service) DeleteWorkout(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetWorkout(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, UserOwner(existing.UserID)); err != nil {
			return err
		}
		return tx.DeleteWorkout(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return nil
}

func nonNilWorkoutEntries(entries []WorkoutExercise) []WorkoutExercise {
	if entries == nil {
		return []WorkoutExercise{}
	}
	return entries
}
