package fitness

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type MembershipMode string

const (
	MembershipAdd    MembershipMode = "add"
	MembershipRemove MembershipMode = "remove"
)

// AdvanceIterator moves the routine to its next session, wrapping to the first.
func AdvanceIterator(routine *Routine) {
	if routine.Iterator < len(routine.Sessions)-1 {
		routine.Iterator++
		return
	}
	routine.Iterator = 0
}

func normalizeIterator(routine *Routine) {
	if routine.Iterator < 0 || routine.Iterator >= len(routine.Sessions) {
		routine.Iterator = 0
	}
}

// ToggleActive flips the active flag of a user's routine. Activating it
// deactivates whichever other routine of that user was active.
func (s *Service) ToggleActive(ctx context.Context, actor Actor, routineID, userID string) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.toggle")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("routine.id", routineID),
		attribute.String("user.id", userID),
	)

	if err := authorizeOwner(actor, UserOwner(userID)); err != nil {
		return nil, err
	}

	var routine *Routine
	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		existing, err := tx.GetRoutine(ctx, routineID)
		if err != nil {
			return err
		}
		if existing.Owner != UserOwner(userID) {
			return unauthorized("routine [%s] does not belong to user [%s]", routineID, userID)
		}

		if !existing.Active {
			active, err := tx.FindActiveRoutine(ctx, userID)
			if err != nil {
				return fmt.Errorf("find active routine: %w", err)
			}
			if active != nil && active.ID != existing.ID {
				active.Active = false
				if err := tx.UpdateRoutine(ctx, active); err != nil {
					return fmt.Errorf("deactivate routine %s: %w", active.ID, err)
				}
			}
		}

		existing.Active = !existing.Active
		if err := tx.UpdateRoutine(ctx, existing); err != nil {
			return err
		}
		routine = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("toggle routine: %w", err)
	}

	span.SetAttributes(attribute.Bool("active", routine.Active))
	return routine, nil
}

// SkipSession advances the routine without logging a workout.
func (s *Service) SkipSession(ctx context.Context, actor Actor, routineID string) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.skip")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("routine.id", routineID))

	var routine *Routine
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetRoutine(ctx, routineID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}
		AdvanceIterator(existing)
		if err := tx.UpdateRoutine(ctx, existing); err != nil {
			return err
		}
		routine = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("skip session: %w", err)
	}

	span.SetAttributes(attribute.Int("iterator", routine.Iterator))
	return routine, nil
}

// NextSession returns the session the user's active routine points at.
// It returns (nil, nil) when the user has no active routine or the active
// routine has no sessions.
func (s *Service) NextSession(ctx context.Context, userID string) (_ *SessionView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.next")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	if _, err := ensureUser(ctx, s.store, userID); err != nil {
		return nil, err
	}

	routine, err := s.store.FindActiveRoutine(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active routine: %w", err)
	}
	if routine == nil || len(routine.Sessions) == 0 {
		return nil, nil
	}

	iterator := routine.Iterator
	if iterator < 0 || iterator >= len(routine.Sessions) {
		iterator = 0
	}
	span.SetAttributes(
		attribute.String("routine.id", routine.ID),
		attribute.Int("iterator", iterator),
	)

	session, err := s.store.GetSession(ctx, routine.Sessions[iterator])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("next session [%s] of routine [%s]", routine.Sessions[iterator], routine.ID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return expandSession(ctx, s.store, session)
}

// UpdateSessionMembership appends a session to the routine, or removes its
// first occurrence and deletes the session record.
func (s *Service) UpdateSessionMembership(ctx context.Context, actor Actor, routineID, sessionID string, mode MembershipMode) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.fitness.routines.membership")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("routine.id", routineID),
		attribute.String("session.id", sessionID),
		attribute.String("mode", string(mode)),
	)

	if mode != MembershipAdd && mode != MembershipRemove {
		return nil, invalid("unknown membership mode [%s]", mode)
	}
	if sessionID == "" {
		return nil, invalid("session is required")
	}

	var routine *Routine
	err = s.store.InTx(ctx, func(tx Store) error {
		existing, err := tx.GetRoutine(ctx, routineID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, existing.Owner); err != nil {
			return err
		}

		switch mode {
		case MembershipAdd:
			if _, err := tx.GetSession(ctx, sessionID); err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			existing.Sessions = append(existing.Sessions, sessionID)
		case MembershipRemove:
			if _, err := tx.GetSession(ctx, sessionID); err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			idx := -1
			for i, id := range existing.Sessions {
				if id == sessionID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return notFound("session [%s] in routine [%s]", sessionID, routineID)
			}
			existing.Sessions = append(existing.Sessions[:idx:idx], existing.Sessions[idx+1:]...)
		}

		if err := deriveRoutine(ctx, tx, existing); err != nil {
			return err
		}
		if err := tx.UpdateRoutine(ctx, existing); err != nil {
			return err
		}

		if mode == MembershipRemove {
			// the record goes too; other references to it are pulled by the cascade
			err := cascadeDelete(ctx, tx, kindSession, sessionID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if existing, err = tx.GetRoutine(ctx, routineID); err != nil {
				return err
			}
		}
		routine = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update session membership: %w", err)
	}
	return routine, nil
}
