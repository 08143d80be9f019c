package fitness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type RoutineInput struct {
	Name        string
	Description string
	Sessions    []string
	Owner       Owner
}

func (in *RoutineInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("routine name is required")
	}
	for i, id := range in.Sessions {
		if id == "" {
			return invalid("routine session #%d is empty", i)
		}
	}
	return nil
}

// CreateRoutine stores a new, inactive routine positioned at its first session.
// A routine without owner is a global template and needs an admin.
func (s *Service) CreateRoutine(ctx context.Context, actor Actor, in RoutineInput) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.create")
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

	routine := &Routine{
		ID:          NewID(),
		Name:        in.Name,
		Description: in.Description,
		Sessions:    nonNilIDs(in.Sessions),
		Iterator:    0,
		Active:      false,
		Owner:       in.Owner,
	}
	err = s.store.InTx(ctx, func(tx Store) error {
		if err := ensureOwner(ctx, tx, routine.Owner); err != nil {
			return err
		}
		if err := ensureUniqueRoutineName(ctx, tx, routine.Owner, routine.Name, ""); err != nil {
			return err
		}
		if _, err := ensureSessions(ctx, tx, routine.Sessions); err != nil {
			return err
		}
		if err := deriveRoutine(ctx, tx, routine); err != nil {
			return err
		}
		return tx.AddRoutine(ctx, routine)
	})
	if err != nil {
		return nil, fmt.Errorf("create routine: %w", err)
	}

	span.SetAttributes(attribute.String("routine.id", routine.ID))
	return routine, nil
}

// GetRoutine returns the routine with its sessions expanded, in rotation order.
func (s *Service) GetRoutine(ctx context.Context, id string) (_ *RoutineView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", id))

	routine, err := s.store.GetRoutine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get routine: %w", err)
	}

	view := &RoutineView{
		ID:          routine.ID,
		Name:        routine.Name,
		Description: routine.Description,
		Sessions:    make([]Session, 0, len(routine.Sessions)),
		Iterator:    routine.Iterator,
		Active:      routine.Active,
		Difficulty:  routine.Difficulty,
		Owner:       routine.Owner,
	}
	for _, sessionID := range routine.Sessions {
		session, err := s.store.GetSession(ctx, sessionID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		view.Sessions = append(view.Sessions, *session)
	}
	return view, nil
}

// ListRoutines lists the routines of a user, or the global templates when
// userID is empty, sorted by name.
func (s *Service) ListRoutines(ctx context.Context, userID string, page Page) (_ []Routine, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	filter := RoutineFilter{Owner: GlobalOwner()}
	if userID != "" {
		if _, err := ensureUser(ctx, s.store, userID); err != nil {
			return nil, 0, err
		}
		filter.Owner = UserOwner(userID)
	}

	routines, err := s.store.ListRoutines(ctx, filter, s.page(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list routines: %w", err)
	}
	total, err = s.store.CountRoutines(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count routines: %w", err)
	}
	return routines, total, nil
}

// UpdateRoutine replaces name, description, owner and session list.
// Moving an active routine to another owner deactivates it.
func (s *Service) UpdateRoutine(ctx context.Context, actor Actor, id string, in RoutineInput) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", id))

	if err := authorizeOwner(actor, in.Owner); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var routine *Routine
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetRoutine(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}
		if err := ensureOwner(ctx, tx, in.Owner); err != nil {
			return err
		}
		if err := ensureUniqueRoutineName(ctx, tx, in.Owner, in.Name, id); err != nil {
			return err
		}
		if _, err := ensureSessions(ctx, tx, in.Sessions); err != nil {
			return err
		}

		if existing.Owner != in.Owner {
			existing.Active = false
		}
		existing.Name = in.Name
		existing.Description = in.Description
		existing.Sessions = nonNilIDs(in.Sessions)
		existing.Owner = in.Owner
		if err := deriveRoutine(ctx, tx, existing); err != nil {
			return err
		}
		if err := tx.UpdateRoutine(ctx, existing); err != nil {
			return err
		}
		routine = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update routine: %w", err)
	}
	return routine, nil
}

// DeleteRoutine removes the routine, its sessions and the workouts logged against it.
func (s *Service) DeleteRoutine(ctx context.Context, actor Actor, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", id))

	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetRoutine(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}
		return cascadeDelete(ctx, tx, kindRoutine, id)
	})
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	return nil
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
