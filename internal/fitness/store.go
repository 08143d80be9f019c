package fitness

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Page is a skip/limit window over a sorted result.
type Page struct {
	Skip  int
	Limit int
}

// ExerciseFilter selects Global exercises, plus the exercises owned by
// UserID when it is set.
type ExerciseFilter struct {
	UserID     string
	Difficulty Difficulty
	Muscle     Muscle
	// NamePattern is a case-insensitive regular expression, see FoldedNamePattern.
	NamePattern string
}

type RoutineFilter struct {
	Owner Owner
}

// WorkoutFilter matches the workouts of a user, optionally in an inclusive date range.
type WorkoutFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
}

type UserRepo interface {
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	AddUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
}

type ExerciseRepo interface {
	GetExercise(ctx context.Context, id string) (*Exercise, error)
	FindExerciseByName(ctx context.Context, owner Owner, name string) (*Exercise, error)
	ListExercises(ctx context.Context, filter ExerciseFilter, page Page) ([]Exercise, error)
	CountExercises(ctx context.Context, filter ExerciseFilter) (int, error)
	AddExercise(ctx context.Context, exercise *Exercise) error
	UpdateExercise(ctx context.Context, exercise *Exercise) error
	DeleteExercise(ctx context.Context, id string) error
	DeleteExercisesByOwner(ctx context.Context, userID string) (int64, error)
}

type SessionRepo interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessionsByExercise(ctx context.Context, exerciseID string) ([]Session, error)
	AddSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, id string) error
}

type RoutineRepo interface {
	GetRoutine(ctx context.Context, id string) (*Routine, error)
	FindRoutineByName(ctx context.Context, owner Owner, name string) (*Routine, error)
	FindActiveRoutine(ctx context.Context, userID string) (*Routine, error)
	ListRoutines(ctx context.Context, filter RoutineFilter, page Page) ([]Routine, error)
	CountRoutines(ctx context.Context, filter RoutineFilter) (int, error)
	ListRoutinesBySession(ctx context.Context, sessionID string) ([]Routine, error)
	AddRoutine(ctx context.Context, routine *Routine) error
	UpdateRoutine(ctx context.Context, routine *Routine) error
	DeleteRoutine(ctx context.Context, id string) error
	DeleteRoutinesByOwner(ctx context.Context, userID string) (int64, error)
}

type WorkoutRepo interface {
	GetWorkout(ctx context.Context, id string) (*Workout, error)
	ListWorkouts(ctx context.Context, filter WorkoutFilter, page Page) ([]Workout, error)
	CountWorkouts(ctx context.Context, filter WorkoutFilter) (int, error)
	LastWorkoutForSession(ctx context.Context, sessionID string) (*Workout, error)
	AddWorkout(ctx context.Context, workout *Workout) error
	UpdateWorkout(ctx context.Context, workout *Workout) error
	DeleteWorkout(ctx context.Context, id string) error
	DeleteWorkoutsByRoutine(ctx context.Context, routineID string) (int64, error)
}

// Store is the record store. Lookups of missing records fail with
// ErrNotFound, writes that break a uniqueness rule with ErrConflict.
// Find* and LastWorkoutForSession return (nil, nil) when nothing matches.
type Store interface {
	UserRepo
	ExerciseRepo
	SessionRepo
	RoutineRepo
	WorkoutRepo

	// InTx runs fn atomically; if fn returns an error nothing it wrote is kept.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

var vowelClasses = strings.NewReplacer(
	"a", "[aáàäâã]", "A", "[aáàäâã]",
	"e", "[eéèëê]", "E", "[eéèëê]",
	"i", "[iíìïî]", "I", "[iíìïî]",
	"o", "[oóòöôõ]", "O", "[oóòöôõ]",
	"u", "[uúùüû]", "U", "[uúùüû]",
)

// FoldedNamePattern turns free search text into a regular expression that
// matches names containing it, ignoring case and accents on vowels.
// Both Go regexp (with (?i)) and PostgreSQL ~* accept the result.
func FoldedNamePattern(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return vowelClasses.Replace(regexp.QuoteMeta(text))
}
