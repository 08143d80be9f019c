package memstore

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"sync"

	"github.com/2beens/gymrotation/internal/fitness"
)

type state struct {
	users     map[string]*fitness.User
	exercises map[string]*fitness.Exercise
	sessions  map[string]*fitness.Session
	routines  map[string]*fitness.Routine
	workouts  map[string]*fitness.Workout
}

func newState() *state {
	return &state{
		users:     make(map[string]*fitness.User),
		exercises: make(map[string]*fitness.Exercise),
		sessions:  make(map[string]*fitness.Session),
		routines:  make(map[string]*fitness.Routine),
		workouts:  make(map[string]*fitness.Workout),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, u := range s.users {
		c.users[id] = cloneUser(u)
	}
	for id, e := range s.exercises {
		c.exercises[id] = cloneExercise(e)
	}
	for id, se := range s.sessions {
		c.sessions[id] = cloneSession(se)
	}
	for id, r := range s.routines {
		c.routines[id] = cloneRoutine(r)
	}
	for id, w := range s.workouts {
		c.workouts[id] = cloneWorkout(w)
	}
	return c
}

// Store keeps all records in memory. Every record handed out or taken in
// is copied, so callers never share memory with the store.
// Transactions work on a copy of the whole state, swapped in on success.
type Store struct {
	mu   *sync.RWMutex
	data *state
	inTx bool
}

func New() *Store {
	return &Store{
		mu:   &sync.RWMutex{},
		data: newState(),
	}
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx runs fn against a snapshot while holding the write lock.
// Nested calls join the running transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx fitness.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{
		mu:   s.mu,
		data: s.data.clone(),
		inTx: true,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s [%s]: %w", kind, id, fitness.ErrNotFound)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), fitness.ErrConflict)
}

// window applies the page to an already sorted slice.
func window[T any](items []T, page fitness.Page) []T {
	if page.Skip >= len(items) {
		return []T{}
	}
	items = items[page.Skip:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

// users

func (s *Store) GetUser(_ context.Context, id string) (*fitness.User, error) {
	defer s.rlock()()
	u, ok := s.data.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return cloneUser(u), nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*fitness.User, error) {
	defer s.rlock()()
	for _, u := range s.data.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) checkUser(user *fitness.User) error {
	for _, u := range s.data.users {
		if u.ID != user.ID && u.Email == user.Email {
			return conflict("email [%s] already taken", user.Email)
		}
	}
	return nil
}

func (s *Store) AddUser(_ context.Context, user *fitness.User) error {
	defer s.lock()()
	if _, ok := s.data.users[user.ID]; ok {
		return conflict("user [%s] already exists", user.ID)
	}
	if err := s.checkUser(user); err != nil {
		return err
	}
	s.data.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, user *fitness.User) error {
	defer s.lock()()
	if _, ok := s.data.users[user.ID]; !ok {
		return notFound("user", user.ID)
	}
	if err := s.checkUser(user); err != nil {
		return err
	}
	s.data.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.data.users, id)
	return nil
}

// exercises

func (s *Store) GetExercise(_ context.Context, id string) (*fitness.Exercise, error) {
	defer s.rlock()()
	e, ok := s.data.exercises[id]
	if !ok {
		return nil, notFound("exercise", id)
	}
	return cloneExercise(e), nil
}

func (s *Store) FindExerciseByName(_ context.Context, owner fitness.Owner, name string) (*fitness.Exercise, error) {
	defer s.rlock()()
	for _, e := range s.data.exercises {
		if e.Owner == owner && e.Name == name {
			return cloneExercise(e), nil
		}
	}
	return nil, nil
}

func (s *Store) filterExercises(filter fitness.ExerciseFilter) ([]fitness.Exercise, error) {
	var nameRe *regexp.Regexp
	if filter.NamePattern != "" {
		re, err := regexp.Compile("(?i)" + filter.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("name pattern: %w", err)
		}
		nameRe = re
	}

	var matched []fitness.Exercise
	for _, e := range s.data.exercises {
		if !e.Owner.IsGlobal() && e.Owner.UserID() != filter.UserID {
			continue
		}
		if filter.Difficulty != "" && e.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Muscle != "" && !slices.Contains(e.Muscles, filter.Muscle) {
			continue
		}
		if nameRe != nil && !nameRe.MatchString(e.Name) {
			continue
		}
		matched = append(matched, *cloneExercise(e))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return matched, nil
}

func (s *Store) ListExercises(_ context.Context, filter fitness.ExerciseFilter, page fitness.Page) ([]fitness.Exercise, error) {
	defer s.rlock()()
	matched, err := s.filterExercises(filter)
	if err != nil {
		return nil, err
	}
	return window(matched, page), nil
}

func (s *Store) CountExercises(_ context.Context, filter fitness.ExerciseFilter) (int, error) {
	defer s.rlock()()
	matched, err := s.filterExercises(filter)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *Store) checkExercise(exercise *fitness.Exercise) error {
	for _, e := range s.data.exercises {
		if e.ID != exercise.ID && e.Owner == exercise.Owner && e.Name == exercise.Name {
			return conflict("exercise [%s] already exists in scope %s", exercise.Name, exercise.Owner)
		}
	}
	return nil
}

func (s *Store) AddExercise(_ context.Context, exercise *fitness.Exercise) error {
	defer s.lock()()
	if _, ok := s.data.exercises[exercise.ID]; ok {
		return conflict("exercise [%s] already exists", exercise.ID)
	}
	if err := s.checkExercise(exercise); err != nil {
		return err
	}
	s.data.exercises[exercise.ID] = cloneExercise(exercise)
	return nil
}

func (s *Store) UpdateExercise(_ context.Context, exercise *fitness.Exercise) error {
	defer s.lock()()
	if _, ok := s.data.exercises[exercise.ID]; !ok {
		return notFound("exercise", exercise.ID)
	}
	if err := s.checkExercise(exercise); err != nil {
		return err
	}
	s.data.exercises[exercise.ID] = cloneExercise(exercise)
	return nil
}

func (s *Store) DeleteExercise(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.exercises[id]; !ok {
		return notFound("exercise", id)
	}
	delete(s.data.exercises, id)
	return nil
}

func (s *Store) DeleteExercisesByOwner(_ context.Context, userID string) (int64, error) {
	defer s.lock()()
	var deleted int64
	for id, e := range s.data.exercises {
		if !e.Owner.IsGlobal() && e.Owner.UserID() == userID {
			delete(s.data.exercises, id)
			deleted++
		}
	}
	return deleted, nil
}

// sessions

func (s *Store) GetSession(_ context.Context, id string) (*fitness.Session, error) {
	defer s.rlock()()
	se, ok := s.data.sessions[id]
	if !ok {
		return nil, notFound("session", id)
	}
	return cloneSession(se), nil
}

func (s *Store) ListSessionsByExercise(_ context.Context, exerciseID string) ([]fitness.Session, error) {
	defer s.rlock()()
	var sessions []fitness.Session
	for _, se := range s.data.sessions {
		for _, entry := range se.Exercises {
			if entry.ExerciseID == exerciseID {
				sessions = append(sessions, *cloneSession(se))
				break
			}
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (s *Store) AddSession(_ context.Context, session *fitness.Session) error {
	defer s.lock()()
	if _, ok := s.data.sessions[session.ID]; ok {
		return conflict("session [%s] already exists", session.ID)
	}
	s.data.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *Store) UpdateSession(_ context.Context, session *fitness.Session) error {
	defer s.lock()()
	if _, ok := s.data.sessions[session.ID]; !ok {
		return notFound("session", session.ID)
	}
	s.data.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.sessions[id]; !ok {
		return notFound("session", id)
	}
	delete(s.data.sessions, id)
	return nil
}

// routines

func (s *Store) GetRoutine(_ context.Context, id string) (*fitness.Routine, error) {
	defer s.rlock()()
	r, ok := s.data.routines[id]
	if !ok {
		return nil, notFound("routine", id)
	}
	return cloneRoutine(r), nil
}

func (s *Store) FindRoutineByName(_ context.Context, owner fitness.Owner, name string) (*fitness.Routine, error) {
	defer s.rlock()()
	for _, r := range s.data.routines {
		if r.Owner == owner && r.Name == name {
			return cloneRoutine(r), nil
		}
	}
	return nil, nil
}

func (s *Store) FindActiveRoutine(_ context.Context, userID string) (*fitness.Routine, error) {
	defer s.rlock()()
	for _, r := range s.data.routines {
		if r.Active && !r.Owner.IsGlobal() && r.Owner.UserID() == userID {
			return cloneRoutine(r), nil
		}
	}
	return nil, nil
}

func (s *Store) filterRoutines(filter fitness.RoutineFilter) []fitness.Routine {
	var matched []fitness.Routine
	for _, r := range s.data.routines {
		if r.Owner == filter.Owner {
			matched = append(matched, *cloneRoutine(r))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}

func (s *Store) ListRoutines(_ context.Context, filter fitness.RoutineFilter, page fitness.Page) ([]fitness.Routine, error) {
	defer s.rlock()()
	return window(s.filterRoutines(filter), page), nil
}

func (s *Store) CountRoutines(_ context.Context, filter fitness.RoutineFilter) (int, error) {
	defer s.rlock()()
	return len(s.filterRoutines(filter)), nil
}

func (s *Store) ListRoutinesBySession(_ context.Context, sessionID string) ([]fitness.Routine, error) {
	defer s.rlock()()
	var routines []fitness.Routine
	for _, r := range s.data.routines {
		if slices.Contains(r.Sessions, sessionID) {
			routines = append(routines, *cloneRoutine(r))
		}
	}
	sort.Slice(routines, func(i, j int) bool {
		return routines[i].ID < routines[j].ID
	})
	return routines, nil
}

func (s *Store) checkRoutine(routine *fitness.Routine) error {
	for _, r := range s.data.routines {
		if r.ID == routine.ID || r.Owner != routine.Owner {
			continue
		}
		if r.Name == routine.Name {
			return conflict("routine [%s] already exists in scope %s", routine.Name, routine.Owner)
		}
		if routine.Active && r.Active {
			return conflict("%s already has an active routine [%s]", routine.Owner, r.ID)
		}
	}
	return nil
}

func (s *Store) AddRoutine(_ context.Context, routine *fitness.Routine) error {
	defer s.lock()()
	if _, ok := s.data.routines[routine.ID]; ok {
		return conflict("routine [%s] already exists", routine.ID)
	}
	if err := s.checkRoutine(routine); err != nil {
		return err
	}
	s.data.routines[routine.ID] = cloneRoutine(routine)
	return nil
}

func (s *Store) UpdateRoutine(_ context.Context, routine *fitness.Routine) error {
	defer s.lock()()
	if _, ok := s.data.routines[routine.ID]; !ok {
		return notFound("routine", routine.ID)
	}
	if err := s.checkRoutine(routine); err != nil {
		return err
	}
	s.data.routines[routine.ID] = cloneRoutine(routine)
	return nil
}

func (s *Store) DeleteRoutine(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.routines[id]; !ok {
		return notFound("routine", id)
	}
	delete(s.data.routines, id)
	return nil
}

func (s *Store) DeleteRoutinesByOwner(_ context.Context, userID string) (int64, error) {
	defer s.lock()()
	var deleted int64
	for id, r := range s.data.routines {
		if !r.Owner.IsGlobal() && r.Owner.UserID() == userID {
			delete(s.data.routines, id)
			deleted++
		}
	}
	return deleted, nil
}

// workouts

func (s *Store) GetWorkout(_ context.Context, id string) (*fitness.Workout, error) {
	defer s.rlock()()
	w, ok := s.data.workouts[id]
	if !ok {
		return nil, notFound("workout", id)
	}
	return cloneWorkout(w), nil
}

func (s *Store) filterWorkouts(filter fitness.WorkoutFilter) []fitness.Workout {
	var matched []fitness.Workout
	for _, w := range s.data.workouts {
		if w.UserID != filter.UserID {
			continue
		}
		if filter.From != nil && w.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && w.Date.After(*filter.To) {
			continue
		}
		matched = append(matched, *cloneWorkout(w))
	}
	sortNewestFirst(matched)
	return matched
}

func sortNewestFirst(workouts []fitness.Workout) {
	sort.Slice(workouts, func(i, j int) bool {
		if !workouts[i].Date.Equal(workouts[j].Date) {
			return workouts[i].Date.After(workouts[j].Date)
		}
		return workouts[i].ID < workouts[j].ID
	})
}

func (s *Store) ListWorkouts(_ context.Context, filter fitness.WorkoutFilter, page fitness.Page) ([]fitness.Workout, error) {
	defer s.rlock()()
	return window(s.filterWorkouts(filter), page), nil
}

func (s *Store) CountWorkouts(_ context.Context, filter fitness.WorkoutFilter) (int, error) {
	defer s.rlock()()
	return len(s.filterWorkouts(filter)), nil
}

func (s *Store) LastWorkoutForSession(_ context.Context, sessionID string) (*fitness.Workout, error) {
	defer s.rlock()()
	var matched []fitness.Workout
	for _, w := range s.data.workouts {
		if w.SessionID == sessionID {
			matched = append(matched, *w)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	sortNewestFirst(matched)
	return cloneWorkout(&matched[0]), nil
}

func (s *Store) AddWorkout(_ context.Context, workout *fitness.Workout) error {
	defer s.lock()()
	if _, ok := s.data.workouts[workout.ID]; ok {
		return conflict("workout [%s] already exists", workout.ID)
	}
	s.data.workouts[workout.ID] = cloneWorkout(workout)
	return nil
}

func (s *Store) UpdateWorkout(_ context.Context, workout *fitness.Workout) error {
	defer s.lock()()
	if _, ok := s.data.workouts[workout.ID]; !ok {
		return notFound("workout", workout.ID)
	}
	s.data.workouts[workout.ID] = cloneWorkout(workout)
	return nil
}

func (s *Store) DeleteWorkout(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.workouts[id]; !ok {
		return notFound("workout", id)
	}
	delete(s.data.workouts, id)
	return nil
}

func (s *Store) DeleteWorkoutsByRoutine(_ context.Context, routineID string) (int64, error) {
	defer s.lock()()
	var deleted int64
	for id, w := range s.data.workouts {
		if w.RoutineID == routineID {
			delete(s.data.workouts, id)
			deleted++
		}
	}
	return deleted, nil
}

// Stats returns the number of stored records per kind.
func (s *Store) Stats() map[string]int {
	defer s.rlock()()
	return map[string]int{
		"users":     len(s.data.users),
		"exercises": len(s.data.exercises),
		"sessions":  len(s.data.sessions),
		"routines":  len(s.data.routines),
		"workouts":  len(s.data.workouts),
	}
}
