package fitness

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyLow    Difficulty = "Low"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHigh   Difficulty = "High"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyLow, DifficultyMedium, DifficultyHigh:
		return true
	}
	return false
}

type Muscle string

const (
	MuscleChest      Muscle = "Chest"
	MuscleBack       Muscle = "Back"
	MuscleShoulders  Muscle = "Shoulders"
	MuscleBiceps     Muscle = "Biceps"
	MuscleTriceps    Muscle = "Triceps"
	MuscleForearms   Muscle = "Forearms"
	MuscleAbs        Muscle = "Abs"
	MuscleLegs       Muscle = "Legs"
	MuscleQuadriceps Muscle = "Quadriceps"
	MuscleHamstrings Muscle = "Hamstrings"
	MuscleGlutes     Muscle = "Glutes"
	MuscleCalves     Muscle = "Calves"
)

var AllMuscles = []Muscle{
	MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps, MuscleForearms,
	MuscleAbs, MuscleLegs, MuscleQuadriceps, MuscleHamstrings, MuscleGlutes, MuscleCalves,
}

func (m Muscle) Valid() bool {
	for _, known := range AllMuscles {
		if m == known {
			return true
		}
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "ADMIN"
)

// Actor is the authenticated principal on whose behalf an operation runs.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owner is either the global namespace or a single user.
// The zero value is Global.
type Owner struct {
	userID string
}

func GlobalOwner() Owner {
	return Owner{}
}

func UserOwner(userID string) Owner {
	return Owner{userID: userID}
}

func (o Owner) IsGlobal() bool {
	return o.userID == ""
}

func (o Owner) UserID() string {
	return o.userID
}

// Ptr returns nil for Global, used as a nullable DB column value.
func (o Owner) Ptr() *string {
	if o.IsGlobal() {
		return nil
	}
	id := o.userID
	return &id
}

func (o Owner) String() string {
	if o.IsGlobal() {
		return "global"
	}
	return "user:" + o.userID
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if o.IsGlobal() {
		return []byte("null"), nil
	}
	return json.Marshal(o.userID)
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var id *string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == nil {
		*o = GlobalOwner()
	} else {
		*o = UserOwner(*id)
	}
	return nil
}

type User struct {
	ID           string `json:"uid"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Gender       Gender `json:"gender"`
	Role         Role   `json:"role"`
}

type Exercise struct {
	ID         string     `json:"uid"`
	Name       string     `json:"name"`
	Muscles    []Muscle   `json:"muscles"`
	Difficulty Difficulty `json:"difficulty"`
	Owner      Owner      `json:"user"`
}

type SetSpec struct {
	Repetitions string `json:"repetitions"`
}

type SessionExercise struct {
	ExerciseID string    `json:"exercise"`
	Sets       []SetSpec `json:"sets"`
	DropSet    bool      `json:"dropSet"`
}

// Session is a planned training day. Muscles and Difficulty are derived
// from the referenced exercises and never taken from input.
type Session struct {
	ID         string            `json:"uid"`
	Name       string            `json:"name"`
	Exercises  []SessionExercise `json:"exercises"`
	Muscles    []Muscle          `json:"muscles"`
	Difficulty Difficulty        `json:"difficulty"`
}

func (s *Session) exerciseIDs() []string {
	ids := make([]string, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		ids = append(ids, e.ExerciseID)
	}
	return ids
}

// Routine is an ordered rotation of sessions. Iterator points at the next
// session to perform; Difficulty is derived from the member sessions.
type Routine struct {
	ID          string     `json:"uid"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Sessions    []string   `json:"sessions"`
	Iterator    int        `json:"iterator"`
	Active      bool       `json:"active"`
	Difficulty  Difficulty `json:"difficulty"`
	Owner       Owner      `json:"user"`
}

type WorkoutSet struct {
	Repetitions int     `json:"repetitions"`
	Weight      float64 `json:"weight"`
}

type WorkoutExercise struct {
	ExerciseID string       `json:"exercise"`
	Sets       []WorkoutSet `json:"sets"`
}

// Workout is a log entry of a performed session.
type Workout struct {
	ID        string            `json:"uid"`
	Date      time.Time         `json:"date"`
	UserID    string            `json:"user"`
	SessionID string            `json:"session"`
	RoutineID string            `json:"routine"`
	Exercises []WorkoutExercise `json:"exercises"`
	Note      string            `json:"note,omitempty"`
}

func (w *Workout) exerciseIDs() []string {
	ids := make([]string, 0, len(w.Exercises))
	for _, e := range w.Exercises {
		ids = append(ids, e.ExerciseID)
	}
	return ids
}

// expanded views, references replaced with the referenced records

type SessionExerciseView struct {
	Exercise *Exercise `json:"exercise"`
	Sets     []SetSpec `json:"sets"`
	DropSet  bool      `json:"dropSet"`
}

type SessionView struct {
	ID         string                `json:"uid"`
	Name       string                `json:"name"`
	Exercises  []SessionExerciseView `json:"exercises"`
	Muscles    []Muscle              `json:"muscles"`
	Difficulty Difficulty            `json:"difficulty"`
}

type RoutineView struct {
	ID          string     `json:"uid"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Sessions    []Session  `json:"sessions"`
	Iterator    int        `json:"iterator"`
	Active      bool       `json:"active"`
	Difficulty  Difficulty `json:"difficulty"`
	Owner       Owner      `json:"user"`
}

type WorkoutExerciseView struct {
	Exercise *Exercise    `json:"exercise"`
	Sets     []WorkoutSet `json:"sets"`
}

type WorkoutView struct {
	ID        string                `json:"uid"`
	Date      time.Time             `json:"date"`
	UserID    string                `json:"user"`
	Session   *Session              `json:"session"`
	RoutineID string                `json:"routine"`
	Exercises []WorkoutExerciseView `json:"exercises"`
	Note      string                `json:"note,omitempty"`
}

// NewID returns a new opaque record identifier.
func NewID() string {
	return uuid.NewString()
}
