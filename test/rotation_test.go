//go:build integration_test || all_tests

package test

import (
	"context"
	"net/http"

	"github.com/2beens/gymrotation/internal/fitness"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nextSessionResponse struct {
	NextSession *fitness.SessionView `json:"nextSession"`
}

func (s *IntegrationTestSuite) createExercise(ctx context.Context, token string, owner *string, difficulty fitness.Difficulty, muscles ...fitness.Muscle) fitness.Exercise {
	status, raw := s.do(ctx, token, http.MethodPost, "/exercises", map[string]any{
		"name":       gofakeit.Sentence(3),
		"muscles":    muscles,
		"difficulty": difficulty,
		"user":       owner,
	})
	require.Equal(s.T(), http.StatusCreated, status, string(raw))

	var exercise fitness.Exercise
	s.decode(raw, &exercise)
	return exercise
}

func (s *IntegrationTestSuite) createSession(ctx context.Context, token string, exercises ...fitness.Exercise) fitness.Session {
	entries := make([]map[string]any, 0, len(exercises))
	for _, e := range exercises {
		entries = append(entries, map[string]any{
			"exercise": e.ID,
			"sets":     []map[string]string{{"repetitions": "10"}, {"repetitions": "8"}},
		})
	}
	status, raw := s.do(ctx, token, http.MethodPost, "/sessions", map[string]any{
		"name":      gofakeit.Word(),
		"exercises": entries,
	})
	require.Equal(s.T(), http.StatusCreated, status, string(raw))

	var session fitness.Session
	s.decode(raw, &session)
	return session
}

func (s *IntegrationTestSuite) nextSession(ctx context.Context, token, userID string) *fitness.SessionView {
	status, raw := s.do(ctx, token, http.MethodGet, "/routines/next-session/"+userID, nil)
	require.Equal(s.T(), http.StatusOK, status, string(raw))

	var resp nextSessionResponse
	s.decode(raw, &resp)
	return resp.NextSession
}

func (s *IntegrationTestSuite) TestRotation() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user, token := s.registerAndLogin(ctx)

	press := s.createExercise(ctx, token, &user.ID, fitness.DifficultyHigh, fitness.MuscleChest, fitness.MuscleTriceps)
	fly := s.createExercise(ctx, token, &user.ID, fitness.DifficultyLow, fitness.MuscleChest)
	squat := s.createExercise(ctx, token, &user.ID, fitness.DifficultyMedium, fitness.MuscleLegs)

	push := s.createSession(ctx, token, press, fly)
	assert.Equal(t, fitness.DifficultyHigh, push.Difficulty)
	assert.Equal(t, []fitness.Muscle{fitness.MuscleChest, fitness.MuscleTriceps}, push.Muscles)
	legs := s.createSession(ctx, token, squat)
	assert.Equal(t, fitness.DifficultyMedium, legs.Difficulty)

	status, raw := s.do(ctx, token, http.MethodPost, "/routines", map[string]any{
		"name":     "Push / Legs",
		"sessions": []string{push.ID, legs.ID},
		"user":     user.ID,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var routine fitness.Routine
	s.decode(raw, &routine)

	// same name, same owner
	status, _ = s.do(ctx, token, http.MethodPost, "/routines", map[string]any{
		"name":     "Push / Legs",
		"sessions": []string{push.ID},
		"user":     user.ID,
	})
	assert.Equal(t, http.StatusConflict, status)

	assert.Nil(t, s.nextSession(ctx, token, user.ID))

	status, raw = s.do(ctx, token, http.MethodPut, "/routines/change-active/"+routine.ID+"/"+user.ID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	next := s.nextSession(ctx, token, user.ID)
	require.NotNil(t, next)
	assert.Equal(t, push.ID, next.ID)

	status, raw = s.do(ctx, token, http.MethodPost, "/workouts", map[string]any{
		"user":    user.ID,
		"session": push.ID,
		"exercises": []map[string]any{{
			"exercise": press.ID,
			"sets":     []map[string]any{{"repetitions": 10, "weight": 60.5}},
		}},
		"note": "felt strong",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var workout fitness.Workout
	s.decode(raw, &workout)
	assert.Equal(t, routine.ID, workout.RoutineID)

	assert.Equal(t, legs.ID, s.nextSession(ctx, token, user.ID).ID)

	status, _ = s.do(ctx, token, http.MethodPut, "/routines/skip-session/"+routine.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, push.ID, s.nextSession(ctx, token, user.ID).ID)

	var iterator int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT iterator FROM routines WHERE id = $1`, routine.ID,
	).Scan(&iterator))
	assert.Equal(t, 0, iterator)

	status, raw = s.do(ctx, token, http.MethodGet, "/workouts/last-workout/"+push.ID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var last struct {
		Workout *fitness.Workout `json:"workout"`
	}
	s.decode(raw, &last)
	require.NotNil(t, last.Workout)
	assert.Equal(t, workout.ID, last.Workout.ID)
	assert.Equal(t, "felt strong", last.Workout.Note)

	// deleting an exercise detaches it from the sessions using it
	status, _ = s.do(ctx, token, http.MethodDelete, "/exercises/"+fly.ID, nil)
	require.Equal(t, http.StatusOK, status)
	status, raw = s.do(ctx, token, http.MethodGet, "/sessions/"+push.ID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var pushView fitness.SessionView
	s.decode(raw, &pushView)
	require.Len(t, pushView.Exercises, 1)
	assert.Equal(t, press.ID, pushView.Exercises[0].Exercise.ID)

	// somebody else cannot touch the routine
	_, strangerToken := s.registerAndLogin(ctx)
	status, _ = s.do(ctx, strangerToken, http.MethodPut, "/routines/skip-session/"+routine.ID, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(ctx, token, http.MethodDelete, "/routines/"+routine.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var workoutsLeft int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM workouts WHERE routine_id = $1`, routine.ID,
	).Scan(&workoutsLeft))
	assert.Zero(t, workoutsLeft)
}

func (s *IntegrationTestSuite) TestGlobalCatalog() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminToken := s.login(ctx, testAdminEmail, testAdminPassword).Token
	_, userToken := s.registerAndLogin(ctx)

	// only admins write to the global scope
	status, _ := s.do(ctx, userToken, http.MethodPost, "/exercises", map[string]any{
		"name":       "Dominadas",
		"muscles":    []fitness.Muscle{fitness.MuscleBack},
		"difficulty": fitness.DifficultyHigh,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	global := s.createExercise(ctx, adminToken, nil, fitness.DifficultyHigh, fitness.MuscleBack, fitness.MuscleBiceps)
	assert.True(t, global.Owner.IsGlobal())

	status, raw := s.do(ctx, userToken, http.MethodGet, "/exercises?muscle=Biceps", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var list struct {
		Exercises []fitness.Exercise `json:"exercises"`
		Count     int                `json:"count"`
	}
	s.decode(raw, &list)
	require.GreaterOrEqual(t, list.Count, 1)

	found := false
	for _, e := range list.Exercises {
		found = found || e.ID == global.ID
	}
	assert.True(t, found)

	session := s.createSession(ctx, adminToken, global)
	status, raw = s.do(ctx, adminToken, http.MethodPost, "/routines/admin", map[string]any{
		"name":     "Pull template",
		"sessions": []string{session.ID},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var template fitness.Routine
	s.decode(raw, &template)
	assert.True(t, template.Owner.IsGlobal())
	assert.Equal(t, fitness.DifficultyHigh, template.Difficulty)
}
