package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/gymrotation/internal/fitness"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return fitness.Difficulty(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("muscle", func(fl validator.FieldLevel) bool {
		return fitness.Muscle(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return fitness.Gender(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("membership", func(fl validator.FieldLevel) bool {
		mode := fitness.MembershipMode(fl.Field().String())
		return mode == fitness.MembershipAdd || mode == fitness.MembershipRemove
	})
	return v
}

// validationMessage lists the failed fields, e.g. "invalid request: difficulty (difficulty)".
func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Gender   string `json:"gender" validate:"omitempty,gender"`
}

func (req createUserRequest) input() fitness.UserInput {
	return fitness.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Gender:   fitness.Gender(req.Gender),
	}
}

type updateUserRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Gender string `json:"gender" validate:"omitempty,gender"`
}

func (req updateUserRequest) input() fitness.UserInput {
	return fitness.UserInput{
		Name:   req.Name,
		Email:  req.Email,
		Gender: fitness.Gender(req.Gender),
	}
}

// owner maps the optional user id of a request body, absent means Global.
func owner(userID *string) fitness.Owner {
	if userID == nil || *userID == "" {
		return fitness.GlobalOwner()
	}
	return fitness.UserOwner(*userID)
}

type exerciseRequest struct {
	Name       string   `json:"name" validate:"required"`
	Muscles    []string `json:"muscles" validate:"dive,muscle"`
	Difficulty string   `json:"difficulty" validate:"required,difficulty"`
	User       *string  `json:"user"`
}

func (req exerciseRequest) input() fitness.ExerciseInput {
	muscles := make([]fitness.Muscle, 0, len(req.Muscles))
	for _, m := range req.Muscles {
		muscles = append(muscles, fitness.Muscle(m))
	}
	return fitness.ExerciseInput{
		Name:       req.Name,
		Muscles:    muscles,
		Difficulty: fitness.Difficulty(req.Difficulty),
		Owner:      owner(req.User),
	}
}

type setSpecRequest struct {
	Repetitions string `json:"repetitions"`
}

type sessionExerciseRequest struct {
	Exercise string           `json:"exercise" validate:"required"`
	Sets     []setSpecRequest `json:"sets"`
	DropSet  bool             `json:"dropSet"`
}

// sessionRequest ignores muscles and difficulty, they are always derived.
type sessionRequest struct {
	Name      string                   `json:"name" validate:"required"`
	Exercises []sessionExerciseRequest `json:"exercises" validate:"dive"`
}

func (req sessionRequest) input() fitness.SessionInput {
	entries := make([]fitness.SessionExercise, 0, len(req.Exercises))
	for _, e := range req.Exercises {
		sets := make([]fitness.SetSpec, 0, len(e.Sets))
		for _, set := range e.Sets {
			sets = append(sets, fitness.SetSpec{Repetitions: set.Repetitions})
		}
		entries = append(entries, fitness.SessionExercise{
			ExerciseID: e.Exercise,
			Sets:       sets,
			DropSet:    e.DropSet,
		})
	}
	return fitness.SessionInput{Name: req.Name, Exercises: entries}
}

type routineRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Sessions    []string `json:"sessions" validate:"dive,required"`
	User        *string  `json:"user"`
}

func (req routineRequest) input() fitness.RoutineInput {
	return fitness.RoutineInput{
		Name:        req.Name,
		Description: req.Description,
		Sessions:    req.Sessions,
		Owner:       owner(req.User),
	}
}

type updateRoutineSessionsRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Mode      string `json:"mode" validate:"required,membership"`
}

type workoutSetRequest struct {
	Repetitions int     `json:"repetitions" validate:"gte=0"`
	Weight      float64 `json:"weight" validate:"gte=0"`
}

type workoutExerciseRequest struct {
	Exercise string              `json:"exercise" validate:"required"`
	Sets     []workoutSetRequest `json:"sets" validate:"dive"`
}

type workoutRequest struct {
	Date      *time.Time               `json:"date"`
	User      string                   `json:"user" validate:"required"`
	Session   string                   `json:"session" validate:"required"`
	Routine   string                   `json:"routine"`
	Exercises []workoutExerciseRequest `json:"exercises" validate:"dive"`
	Note      string                   `json:"note" validate:"max=2000"`
}

func (req workoutRequest) input() fitness.WorkoutInput {
	entries := make([]fitness.WorkoutExercise, 0, len(req.Exercises))
	for _, e := range req.Exercises {
		sets := make([]fitness.WorkoutSet, 0, len(e.Sets))
		for _, set := range e.Sets {
			sets = append(sets, fitness.WorkoutSet{Repetitions: set.Repetitions, Weight: set.Weight})
		}
		entries = append(entries, fitness.WorkoutExercise{ExerciseID: e.Exercise, Sets: sets})
	}
	in := fitness.WorkoutInput{
		UserID:    req.User,
		SessionID: req.Session,
		RoutineID: req.Routine,
		Exercises: entries,
		Note:      req.Note,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	return in
}

// parseDate accepts RFC 3339 timestamps and plain dates. A plain end date
// covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date [%s]", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
