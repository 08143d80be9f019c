package memstore

import (
	"slices"

	"github.com/2beens/gymrotation/internal/fitness"
)

func cloneUser(u *fitness.User) *fitness.User {
	c := *u
	return &c
}

func cloneExercise(e *fitness.Exercise) *fitness.Exercise {
	c := *e
	c.Muscles = cloneSlice(e.Muscles)
	return &c
}

func cloneSession(s *fitness.Session) *fitness.Session {
	c := *s
	c.Muscles = cloneSlice(s.Muscles)
	c.Exercises = make([]fitness.SessionExercise, len(s.Exercises))
	for i, entry := range s.Exercises {
		entry.Sets = cloneSlice(entry.Sets)
		c.Exercises[i] = entry
	}
	return &c
}

func cloneRoutine(r *fitness.Routine) *fitness.Routine {
	c := *r
	c.Sessions = cloneSlice(r.Sessions)
	return &c
}

func cloneWorkout(w *fitness.Workout) *fitness.Workout {
	c := *w
	c.Exercises = make([]fitness.WorkoutExercise, len(w.Exercises))
	for i, entry := range w.Exercises {
		entry.Sets = cloneSlice(entry.Sets)
		c.Exercises[i] = entry
	}
	return &c
}

// cloneSlice keeps nil-vs-empty out of the picture: a clone is never nil.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
