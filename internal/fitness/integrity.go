package fitness

import (
	"context"
	"errors"
	"fmt"
)

// authorizeOwner checks that actor may mutate records in the owner scope:
// the global scope is admin-only, a user scope belongs to that user.
func authorizeOwner(actor Actor, owner Owner) error {
	if actor.IsAdmin() {
		return nil
	}
	if owner.IsGlobal() {
		return unauthorized("only an admin can manage global records")
	}
	if actor.UserID == "" || actor.UserID != owner.UserID() {
		return unauthorized("records of user [%s] can only be managed by that user", owner.UserID())
	}
	return nil
}

func ensureUser(ctx context.Context, st Store, userID string) (*User, error) {
	if userID == "" {
		return nil, invalid("user is required")
	}
	user, err := st.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ensureOwner checks that a user scope references an existing user.
func ensureOwner(ctx context.Context, st Store, owner Owner) error {
	if owner.IsGlobal() {
		return nil
	}
	_, err := ensureUser(ctx, st, owner.UserID())
	return err
}

// ensureExercises resolves every id, failing on the first missing one.
func ensureExercises(ctx context.Context, st Store, ids []string) (map[string]*Exercise, error) {
	exercises := make(map[string]*Exercise, len(ids))
	for _, id := range ids {
		if _, ok := exercises[id]; ok {
			continue
		}
		ex, err := st.GetExercise(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get exercise: %w", err)
		}
		exercises[id] = ex
	}
	return exercises, nil
}

// ensureSessions resolves every id, failing on the first missing one.
func ensureSessions(ctx context.Context, st Store, ids []string) (map[string]*Session, error) {
	sessions := make(map[string]*Session, len(ids))
	for _, id := range ids {
		if _, ok := sessions[id]; ok {
			continue
		}
		session, err := st.GetSession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		sessions[id] = session
	}
	return sessions, nil
}

func ensureUniqueExerciseName(ctx context.Context, st Store, owner Owner, name, excludeID string) error {
	existing, err := st.FindExerciseByName(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("find exercise by name: %w", err)
	}
	if existing != nil && existing.ID != excludeID {
		return conflict("exercise [%s] already exists in scope %s", name, owner)
	}
	return nil
}

func ensureUniqueRoutineName(ctx context.Context, st Store, owner Owner, name, excludeID string) error {
	existing, err := st.FindRoutineByName(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("find routine by name: %w", err)
	}
	if existing != nil && existing.ID != excludeID {
		return conflict("routine [%s] already exists in scope %s", name, owner)
	}
	return nil
}

func ensureUniqueEmail(ctx context.Context, st Store, email, excludeID string) error {
	existing, err := st.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil && existing.ID != excludeID {
		return conflict("email [%s] is already registered", email)
	}
	return nil
}

// deriveSession recomputes the derived attributes of a session from its
// current exercise list. It is the only place they are written.
func deriveSession(ctx context.Context, st Store, session *Session) error {
	exercises, err := ensureExercises(ctx, st, session.exerciseIDs())
	if err != nil {
		return err
	}

	var muscles []Muscle
	difficulties := make([]Difficulty, 0, len(session.Exercises))
	for _, entry := range session.Exercises {
		ex := exercises[entry.ExerciseID]
		muscles = append(muscles, ex.Muscles...)
		difficulties = append(difficulties, ex.Difficulty)
	}

	session.Muscles = AggregateMuscles(muscles)
	session.Difficulty = AggregateDifficulty(difficulties)
	return nil
}

// deriveRoutine recomputes the routine difficulty from its member sessions
// and puts the iterator back in range. Dangling session references are
// tolerated here; they are rejected on input and pulled on session delete.
func deriveRoutine(ctx context.Context, st Store, routine *Routine) error {
	difficulties := make([]Difficulty, 0, len(routine.Sessions))
	for _, id := range routine.Sessions {
		session, err := st.GetSession(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		difficulties = append(difficulties, session.Difficulty)
	}

	routine.Difficulty = AggregateDifficulty(difficulties)
	normalizeIterator(routine)
	return nil
}

// resyncRoutinesWithSession re-derives every routine containing the session.
// With pull set, the session is first removed from them.
func resyncRoutinesWithSession(ctx context.Context, st Store, sessionID string, pull bool) error {
	routines, err := st.ListRoutinesBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list routines by session: %w", err)
	}
	for i := range routines {
		routine := &routines[i]
		if pull {
			routine.Sessions = removeAll(routine.Sessions, sessionID)
		}
		if err := deriveRoutine(ctx, st, routine); err != nil {
			return err
		}
		if err := st.UpdateRoutine(ctx, routine); err != nil {
			return fmt.Errorf("update routine %s: %w", routine.ID, err)
		}
	}
	return nil
}

// resyncSessionsWithExercise re-derives every session using the exercise
// (and their routines). With pull set, the exercise is first removed from them.
func resyncSessionsWithExercise(ctx context.Context, st Store, exerciseID string, pull bool) error {
	sessions, err := st.ListSessionsByExercise(ctx, exerciseID)
	if err != nil {
		return fmt.Errorf("list sessions by exercise: %w", err)
	}
	for i := range sessions {
		session := &sessions[i]
		if pull {
			kept := make([]SessionExercise, 0, len(session.Exercises))
			for _, entry := range session.Exercises {
				if entry.ExerciseID != exerciseID {
					kept = append(kept, entry)
				}
			}
			session.Exercises = kept
		}
		if err := deriveSession(ctx, st, session); err != nil {
			return err
		}
		if err := st.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("update session %s: %w", session.ID, err)
		}
		if err := resyncRoutinesWithSession(ctx, st, session.ID, false); err != nil {
			return err
		}
	}
	return nil
}

type recordKind string

const (
	kindUser     recordKind = "user"
	kindExercise recordKind = "exercise"
	kindSession  recordKind = "session"
	kindRoutine  recordKind = "routine"
)

// cascadeRule removes or detaches the dependents of a parent record
// before the parent itself is deleted.
type cascadeRule struct {
	parent    recordKind
	dependent string
	apply     func(ctx context.Context, st Store, parentID string) error
}

// cascadeRules is the whole dependency graph. A user delete is shallow:
// owned routines go in bulk, their sessions and workouts stay. Surviving
// sessions drop their entries for the user's exercises.
// Set in init, the rules call back into cascadeDelete.
var cascadeRules []cascadeRule

func init() {
	cascadeRules = []cascadeRule{
		{
			parent:    kindUser,
			dependent: "owned exercises",
			apply:     deleteOwnedExercises,
		},
		{
			parent:    kindUser,
			dependent: "owned routines",
			apply: func(ctx context.Context, st Store, userID string) error {
				_, err := st.DeleteRoutinesByOwner(ctx, userID)
				return err
			},
		},
		{
			parent:    kindRoutine,
			dependent: "member sessions",
			apply: func(ctx context.Context, st Store, routineID string) error {
				routine, err := st.GetRoutine(ctx, routineID)
				if err != nil {
					return err
				}
				for _, sessionID := range routine.Sessions {
					err := cascadeDelete(ctx, st, kindSession, sessionID)
					if err != nil && !errors.Is(err, ErrNotFound) {
						return err
					}
				}
				return nil
			},
		},
		{
			parent:    kindRoutine,
			dependent: "workouts",
			apply: func(ctx context.Context, st Store, routineID string) error {
				_, err := st.DeleteWorkoutsByRoutine(ctx, routineID)
				return err
			},
		},
		{
			parent:    kindSession,
			dependent: "routine memberships",
			apply: func(ctx context.Context, st Store, sessionID string) error {
				return resyncRoutinesWithSession(ctx, st, sessionID, true)
			},
		},
		{
			parent:    kindExercise,
			dependent: "session entries",
			apply: func(ctx context.Context, st Store, exerciseID string) error {
				return resyncSessionsWithExercise(ctx, st, exerciseID, true)
			},
		},
	}
}

func deleteOwnedExercises(ctx context.Context, st Store, userID string) error {
	filter := ExerciseFilter{UserID: userID}
	count, err := st.CountExercises(ctx, filter)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	// entries are pulled per exercise, the records then go in bulk
	exercises, err := st.ListExercises(ctx, filter, Page{Limit: count})
	if err != nil {
		return err
	}
	for _, exercise := range exercises {
		// the filter also yields globals
		if exercise.Owner.IsGlobal() || exercise.Owner.UserID() != userID {
			continue
		}
		if err := resyncSessionsWithExercise(ctx, st, exercise.ID, true); err != nil {
			return err
		}
	}
	_, err = st.DeleteExercisesByOwner(ctx, userID)
	return err
}

func cascadeDelete(ctx context.Context, st Store, kind recordKind, id string) error {
	for _, rule := range cascadeRules {
		if rule.parent != kind {
			continue
		}
		if err := rule.apply(ctx, st, id); err != nil {
			return fmt.Errorf("cascade %s %s -> %s: %w", kind, id, rule.dependent, err)
		}
	}

	var err error
	switch kind {
	case kindUser:
		err = st.DeleteUser(ctx, id)
	case kindExercise:
		err = st.DeleteExercise(ctx, id)
	case kindSession:
		err = st.DeleteSession(ctx, id)
	case kindRoutine:
		err = st.DeleteRoutine(ctx, id)
	default:
		err = fmt.Errorf("no delete for record kind %s", kind)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

func removeAll(ids []string, id string) []string {
	kept := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return kept
}
