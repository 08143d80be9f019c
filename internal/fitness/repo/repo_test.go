//go:build integration_test || all_tests

package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/gymrotation/internal/db"
	"github.com/2beens/gymrotation/internal/fitness"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	t.Logf("using postres host: %s:%s", host, port)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         port,
		DBName:         "gymrotation_test",
		TracingEnabled: false,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(timeoutCtx, dbPool))

	_, err = dbPool.Exec(timeoutCtx, `TRUNCATE users, exercises, sessions, routines, workouts`)
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func fakeUser() *fitness.User {
	return &fitness.User{
		ID:           fitness.NewID(),
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: gofakeit.Password(true, true, true, false, false, 20),
		Gender:       fitness.GenderOther,
		Role:         fitness.RoleUser,
	}
}

func TestRepo_UsersAndExercises(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()
	ctx := context.Background()

	user := fakeUser()
	require.NoError(t, repo.AddUser(ctx, user))
	dup := fakeUser()
	dup.Email = user.Email
	assert.ErrorIs(t, repo.AddUser(ctx, dup), fitness.ErrConflict)

	found, err := repo.FindUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, *user, *found)

	found, err = repo.FindUserByEmail(ctx, "nobody@nowhere.test")
	require.NoError(t, err)
	assert.Nil(t, found)

	global := &fitness.Exercise{
		ID:         fitness.NewID(),
		Name:       "Press militar",
		Muscles:    []fitness.Muscle{fitness.MuscleShoulders, fitness.MuscleTriceps},
		Difficulty: fitness.DifficultyMedium,
	}
	require.NoError(t, repo.AddExercise(ctx, global))
	sameName := *global
	sameName.ID = fitness.NewID()
	assert.ErrorIs(t, repo.AddExercise(ctx, &sameName), fitness.ErrConflict)
	sameName.Owner = fitness.UserOwner(user.ID)
	require.NoError(t, repo.AddExercise(ctx, &sameName))

	got, err := repo.GetExercise(ctx, global.ID)
	require.NoError(t, err)
	assert.Equal(t, *global, *got)

	byName, err := repo.FindExerciseByName(ctx, fitness.UserOwner(user.ID), "Press militar")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, sameName.ID, byName.ID)

	listed, err := repo.ListExercises(ctx, fitness.ExerciseFilter{
		UserID:      user.ID,
		Muscle:      fitness.MuscleTriceps,
		NamePattern: fitness.FoldedNamePattern("MILITAR"),
	}, fitness.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	count, err := repo.CountExercises(ctx, fitness.ExerciseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	deleted, err := repo.DeleteExercisesByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetExercise(ctx, sameName.ID)
	assert.ErrorIs(t, err, fitness.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteUser(ctx, "missing"), fitness.ErrNotFound)
}

func TestRepo_SessionsRoutinesWorkouts(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()
	ctx := context.Background()

	user := fakeUser()
	require.NoError(t, repo.AddUser(ctx, user))

	session := &fitness.Session{
		ID:   fitness.NewID(),
		Name: "Push",
		Exercises: []fitness.SessionExercise{
			{ExerciseID: "ex-1", Sets: []fitness.SetSpec{{Repetitions: "12"}}, DropSet: true},
			{ExerciseID: "ex-2", Sets: []fitness.SetSpec{}},
		},
		Muscles:    []fitness.Muscle{fitness.MuscleChest},
		Difficulty: fitness.DifficultyHigh,
	}
	require.NoError(t, repo.AddSession(ctx, session))

	gotSession, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, *session, *gotSession)

	byExercise, err := repo.ListSessionsByExercise(ctx, "ex-2")
	require.NoError(t, err)
	require.Len(t, byExercise, 1)
	byExercise, err = repo.ListSessionsByExercise(ctx, "ex-3")
	require.NoError(t, err)
	assert.Empty(t, byExercise)

	r1 := &fitness.Routine{
		ID:         fitness.NewID(),
		Name:       "R1",
		Sessions:   []string{session.ID},
		Active:     true,
		Difficulty: fitness.DifficultyHigh,
		Owner:      fitness.UserOwner(user.ID),
	}
	require.NoError(t, repo.AddRoutine(ctx, r1))
	r2 := &fitness.Routine{
		ID:         fitness.NewID(),
		Name:       "R2",
		Sessions:   []string{},
		Difficulty: fitness.DifficultyMedium,
		Owner:      fitness.UserOwner(user.ID),
	}
	require.NoError(t, repo.AddRoutine(ctx, r2))

	r2.Active = true
	assert.ErrorIs(t, repo.UpdateRoutine(ctx, r2), fitness.ErrConflict)

	active, err := repo.FindActiveRoutine(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, *r1, *active)

	bySession, err := repo.ListRoutinesBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, r1.ID, bySession[0].ID)

	count, err := repo.CountRoutines(ctx, fitness.RoutineFilter{Owner: fitness.UserOwner(user.ID)})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	day := time.Date(2024, time.January, 10, 7, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, repo.AddWorkout(ctx, &fitness.Workout{
			ID:        fitness.NewID(),
			Date:      day.AddDate(0, 0, i),
			UserID:    user.ID,
			SessionID: session.ID,
			RoutineID: r1.ID,
			Exercises: []fitness.WorkoutExercise{{
				ExerciseID: "ex-1",
				Sets:       []fitness.WorkoutSet{{Repetitions: 10, Weight: 42.5}},
			}},
		}))
	}

	from := day.AddDate(0, 0, 1)
	workouts, err := repo.ListWorkouts(ctx, fitness.WorkoutFilter{UserID: user.ID, From: &from}, fitness.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, workouts, 2)
	assert.True(t, workouts[0].Date.After(workouts[1].Date))
	assert.Equal(t, 42.5, workouts[0].Exercises[0].Sets[0].Weight)

	last, err := repo.LastWorkoutForSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Date.Equal(day.AddDate(0, 0, 2)))

	deleted, err := repo.DeleteWorkoutsByRoutine(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	deleted, err = repo.DeleteRoutinesByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestRepo_ServiceOnPostgres(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()
	ctx := context.Background()

	svc := fitness.NewService(repo)
	svc.PasswordCost = bcrypt.MinCost
	admin := fitness.Actor{UserID: "admin", Role: fitness.RoleAdmin}

	user, err := svc.CreateUser(ctx, fitness.UserInput{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: "secret",
	})
	require.NoError(t, err)
	actor := fitness.Actor{UserID: user.ID, Role: user.Role}

	ex, err := svc.CreateExercise(ctx, admin, fitness.ExerciseInput{
		Name:       "Remo",
		Muscles:    []fitness.Muscle{fitness.MuscleBack},
		Difficulty: fitness.DifficultyLow,
	})
	require.NoError(t, err)

	var sessionIDs []string
	for _, name := range []string{"A", "B", "C"} {
		s, err := svc.CreateSession(ctx, fitness.SessionInput{
			Name:      name,
			Exercises: []fitness.SessionExercise{{ExerciseID: ex.ID}},
		})
		require.NoError(t, err)
		sessionIDs = append(sessionIDs, s.ID)
	}

	routine, err := svc.CreateRoutine(ctx, actor, fitness.RoutineInput{
		Name:     "ABC",
		Sessions: sessionIDs,
		Owner:    fitness.UserOwner(user.ID),
	})
	require.NoError(t, err)
	_, err = svc.ToggleActive(ctx, actor, routine.ID, user.ID)
	require.NoError(t, err)

	for range 2 {
		_, err = svc.SkipSession(ctx, actor, routine.ID)
		require.NoError(t, err)
	}
	workout, err := svc.LogWorkout(ctx, actor, fitness.WorkoutInput{UserID: user.ID, SessionID: sessionIDs[2]})
	require.NoError(t, err)
	assert.Equal(t, routine.ID, workout.RoutineID)

	next, err := svc.NextSession(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, sessionIDs[0], next.ID)

	// a failing tx leaves nothing behind
	_, err = svc.LogWorkout(ctx, actor, fitness.WorkoutInput{
		UserID:    user.ID,
		SessionID: sessionIDs[0],
		Exercises: []fitness.WorkoutExercise{{ExerciseID: "missing"}},
	})
	assert.ErrorIs(t, err, fitness.ErrNotFound)
	view, err := svc.GetRoutine(ctx, routine.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Iterator)

	require.NoError(t, svc.DeleteUser(ctx, actor, user.ID))
	_, err = svc.GetRoutine(ctx, routine.ID)
	assert.ErrorIs(t, err, fitness.ErrNotFound)
	_, err = svc.GetSession(ctx, sessionIDs[0])
	assert.NoError(t, err)
}
