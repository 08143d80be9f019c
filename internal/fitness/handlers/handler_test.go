package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2beens/gymrotation/internal/auth"
	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/fitness/handlers"
	"github.com/2beens/gymrotation/internal/fitness/memstore"
	"github.com/2beens/gymrotation/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var adminActor = fitness.Actor{UserID: "admin", Role: fitness.RoleAdmin}

type testServer struct {
	ctx            context.Context
	router         *mux.Router
	service        *fitness.Service
	metricsManager *metrics.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	service := fitness.NewService(memstore.New())
	service.PasswordCost = bcrypt.MinCost
	service.Now = func() time.Time { return time.Date(2024, time.May, 4, 18, 30, 0, 0, time.UTC) }

	metricsManager := metrics.NewTestManager()
	router := mux.NewRouter()
	handlers.NewHandler(service, metricsManager).SetupRoutes(router)

	return &testServer{
		ctx:            context.Background(),
		router:         router,
		service:        service,
		metricsManager: metricsManager,
	}
}

// do sends the request as actor; a nil actor means no logged in user.
func (s *testServer) do(t *testing.T, actor *fitness.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, path, nil)
		require.NoError(t, err)
	}
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) user(t *testing.T, email string) (*fitness.User, *fitness.Actor) {
	t.Helper()
	user, err := s.service.CreateUser(s.ctx, fitness.UserInput{
		Name:     "Test",
		Email:    email,
		Password: "secret-pass",
	})
	require.NoError(t, err)
	return user, &fitness.Actor{UserID: user.ID, Role: user.Role}
}

func (s *testServer) exercise(t *testing.T, name string, d fitness.Difficulty, muscles ...fitness.Muscle) *fitness.Exercise {
	t.Helper()
	ex, err := s.service.CreateExercise(s.ctx, adminActor, fitness.ExerciseInput{
		Name:       name,
		Muscles:    muscles,
		Difficulty: d,
	})
	require.NoError(t, err)
	return ex
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHandler_Users(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, nil, "POST", "/users", `{"name":"Ana","email":"Ana@Example.com","password":"secret-pass","gender":"Female"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")
	created := decode[fitness.User](t, rr)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, fitness.RoleUser, created.Role)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.CounterUsersRegistered))

	rr = s.do(t, nil, "POST", "/users", `{"name":"Ana 2","email":"ana@example.com","password":"secret-pass"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, nil, "POST", "/users", `{"name":"Bo","email":"bo@example.com","password":"secret-pass","gender":"Robot"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "gender")

	rr = s.do(t, nil, "POST", "/users", `{"name":"Bo","email":"not-an-email","password":"secret-pass"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, nil, "GET", "/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ana", decode[fitness.User](t, rr).Name)

	rr = s.do(t, nil, "GET", "/users/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	update := `{"name":"Ana Maria","email":"ana@example.com"}`
	rr = s.do(t, nil, "PUT", "/users/"+created.ID, update)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	_, other := s.user(t, "other@example.com")
	rr = s.do(t, other, "PUT", "/users/"+created.ID, update)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	self := &fitness.Actor{UserID: created.ID, Role: fitness.RoleUser}
	rr = s.do(t, self, "PUT", "/users/"+created.ID, update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Ana Maria", decode[fitness.User](t, rr).Name)

	rr = s.do(t, self, "DELETE", "/users/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deletedId":"`+created.ID+`"}`, rr.Body.String())

	rr = s.do(t, nil, "GET", "/users/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Exercises(t *testing.T) {
	s := newTestServer(t)
	user, actor := s.user(t, "ana@example.com")

	s.exercise(t, "Press de banca", fitness.DifficultyHigh, fitness.MuscleChest, fitness.MuscleTriceps)
	s.exercise(t, "Presión militar", fitness.DifficultyMedium, fitness.MuscleShoulders)
	s.exercise(t, "Curl", fitness.DifficultyLow, fitness.MuscleBiceps)

	// a regular user cannot add global exercises
	rr := s.do(t, actor, "POST", "/exercises", `{"name":"Dominadas","muscles":["Back"],"difficulty":"High"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, actor, "POST", "/exercises", `{"name":"Dominadas","muscles":["Back"],"difficulty":"High","user":"`+user.ID+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	own := decode[fitness.Exercise](t, rr)
	assert.Equal(t, fitness.UserOwner(user.ID), own.Owner)

	rr = s.do(t, actor, "POST", "/exercises", `{"name":"Remo","muscles":["Wings"],"difficulty":"High"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "POST", "/exercises", `{"name":"Remo","muscles":["Back"],"difficulty":"Extreme"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	type listResponse struct {
		Exercises []fitness.Exercise `json:"exercises"`
		Count     int                `json:"count"`
	}

	rr = s.do(t, actor, "GET", "/exercises", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[listResponse](t, rr).Count)

	rr = s.do(t, actor, "GET", "/exercises?userId="+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, decode[listResponse](t, rr).Count)

	rr = s.do(t, actor, "GET", "/exercises?text=PRESION", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[listResponse](t, rr)
	require.Len(t, list.Exercises, 1)
	assert.Equal(t, "Presión militar", list.Exercises[0].Name)

	rr = s.do(t, actor, "GET", "/exercises?muscle=Chest&difficulty=High", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[listResponse](t, rr).Count)

	rr = s.do(t, actor, "GET", "/exercises?from=1&results=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list = decode[listResponse](t, rr)
	assert.Equal(t, 3, list.Count)
	require.Len(t, list.Exercises, 1)
	assert.Equal(t, "Presión militar", list.Exercises[0].Name)

	rr = s.do(t, actor, "GET", "/exercises?from=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "GET", "/exercises?muscle=Wings", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "GET", "/exercises?userId=missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, actor, "PUT", "/exercises/"+own.ID, `{"name":"Dominadas lastradas","muscles":["Back","Biceps"],"difficulty":"High","user":"`+user.ID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Dominadas lastradas", decode[fitness.Exercise](t, rr).Name)

	rr = s.do(t, actor, "DELETE", "/exercises/"+own.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, actor, "GET", "/exercises/"+own.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Rotation(t *testing.T) {
	s := newTestServer(t)
	user, actor := s.user(t, "ana@example.com")

	bench := s.exercise(t, "Press de banca", fitness.DifficultyHigh, fitness.MuscleChest)
	squat := s.exercise(t, "Sentadilla", fitness.DifficultyHigh, fitness.MuscleLegs)

	rr := s.do(t, actor, "POST", "/sessions", `{"name":"Push","exercises":[{"exercise":"`+bench.ID+`","sets":[{"repetitions":"10"}]}],"difficulty":"Low"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	push := decode[fitness.Session](t, rr)
	assert.Equal(t, fitness.DifficultyHigh, push.Difficulty)
	assert.Equal(t, []fitness.Muscle{fitness.MuscleChest}, push.Muscles)

	rr = s.do(t, actor, "POST", "/sessions", `{"name":"Legs","exercises":[{"exercise":"`+squat.ID+`","sets":[{"repetitions":"5"}],"dropSet":true}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	legs := decode[fitness.Session](t, rr)

	rr = s.do(t, actor, "POST", "/sessions", `{"name":"Broken","exercises":[{"exercise":"missing"}]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, actor, "GET", "/sessions/"+push.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[fitness.SessionView](t, rr)
	require.Len(t, view.Exercises, 1)
	assert.Equal(t, "Press de banca", view.Exercises[0].Exercise.Name)

	// routine needs an owner on the regular endpoint
	rr = s.do(t, actor, "POST", "/routines", `{"name":"PPL","sessions":["`+push.ID+`","`+legs.ID+`"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "POST", "/routines/admin", `{"name":"PPL","sessions":["`+push.ID+`"]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, &adminActor, "POST", "/routines/admin", `{"name":"Template","sessions":["`+push.ID+`"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, decode[fitness.Routine](t, rr).Owner.IsGlobal())

	rr = s.do(t, actor, "POST", "/routines", `{"name":"PPL","sessions":["`+push.ID+`","`+legs.ID+`"],"user":"`+user.ID+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	routine := decode[fitness.Routine](t, rr)
	assert.False(t, routine.Active)
	assert.Equal(t, 0, routine.Iterator)

	type nextResponse struct {
		NextSession *fitness.SessionView `json:"nextSession"`
	}

	rr = s.do(t, actor, "GET", "/routines/next-session/"+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[nextResponse](t, rr).NextSession)

	rr = s.do(t, actor, "PUT", "/routines/change-active/"+routine.ID+"/"+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[fitness.Routine](t, rr).Active)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.CounterRoutineToggles.WithLabelValues("true")))

	rr = s.do(t, actor, "GET", "/routines/next-session/"+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	next := decode[nextResponse](t, rr).NextSession
	require.NotNil(t, next)
	assert.Equal(t, push.ID, next.ID)

	rr = s.do(t, actor, "POST", "/workouts", `{"user":"`+user.ID+`","session":"`+push.ID+`","exercises":[{"exercise":"`+bench.ID+`","sets":[{"repetitions":10,"weight":60}]}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	workout := decode[fitness.Workout](t, rr)
	assert.Equal(t, routine.ID, workout.RoutineID)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.CounterWorkoutsLogged))

	rr = s.do(t, actor, "GET", "/routines/next-session/"+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, legs.ID, decode[nextResponse](t, rr).NextSession.ID)

	rr = s.do(t, actor, "PUT", "/routines/skip-session/"+routine.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[fitness.Routine](t, rr).Iterator)
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metricsManager.CounterSessionsSkipped))

	_, stranger := s.user(t, "stranger@example.com")
	rr = s.do(t, stranger, "PUT", "/routines/skip-session/"+routine.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, nil, "PUT", "/routines/skip-session/"+routine.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, actor, "PUT", "/routines/update-sessions/"+routine.ID, `{"sessionId":"`+push.ID+`","mode":"swap"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, actor, "PUT", "/routines/update-sessions/"+routine.ID, `{"sessionId":"`+legs.ID+`","mode":"remove"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{push.ID}, decode[fitness.Routine](t, rr).Sessions)

	rr = s.do(t, actor, "GET", "/sessions/"+legs.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, actor, "GET", "/routines/"+routine.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	routineView := decode[fitness.RoutineView](t, rr)
	require.Len(t, routineView.Sessions, 1)
	assert.Equal(t, "Push", routineView.Sessions[0].Name)

	type routinesResponse struct {
		Routines []fitness.Routine `json:"routines"`
		Count    int               `json:"count"`
	}
	rr = s.do(t, actor, "GET", "/routines?userId="+user.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[routinesResponse](t, rr).Count)
	rr = s.do(t, actor, "GET", "/routines", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Template", decode[routinesResponse](t, rr).Routines[0].Name)

	rr = s.do(t, actor, "DELETE", "/routines/"+routine.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, actor, "GET", "/workouts/"+workout.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Workouts(t *testing.T) {
	s := newTestServer(t)
	user, actor := s.user(t, "ana@example.com")
	bench := s.exercise(t, "Press de banca", fitness.DifficultyHigh, fitness.MuscleChest)

	session, err := s.service.CreateSession(s.ctx, fitness.SessionInput{
		Name:      "Push",
		Exercises: []fitness.SessionExercise{{ExerciseID: bench.ID}},
	})
	require.NoError(t, err)
	_, err = s.service.CreateRoutine(s.ctx, *actor, fitness.RoutineInput{
		Name:     "Solo push",
		Sessions: []string{session.ID},
		Owner:    fitness.UserOwner(user.ID),
	})
	require.NoError(t, err)

	type lastResponse struct {
		Workout *fitness.Workout `json:"workout"`
	}
	rr := s.do(t, actor, "GET", "/workouts/last-workout/"+session.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[lastResponse](t, rr).Workout)

	for _, date := range []string{"2024-04-01T10:00:00Z", "2024-04-15T10:00:00Z", "2024-05-01T10:00:00Z"} {
		rr = s.do(t, actor, "POST", "/workouts", `{"date":"`+date+`","user":"`+user.ID+`","session":"`+session.ID+`"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = s.do(t, actor, "POST", "/workouts", `{"user":"`+user.ID+`","session":"`+session.ID+`","exercises":[{"exercise":"`+bench.ID+`","sets":[{"repetitions":-1}]}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "POST", "/workouts", `{"session":"`+session.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	type listResponse struct {
		Workouts []fitness.Workout `json:"workouts"`
		Count    int               `json:"count"`
	}

	rr = s.do(t, actor, "GET", "/workouts?userId="+user.ID+"&startDate=2024-04-10&endDate=2024-05-01", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list := decode[listResponse](t, rr)
	assert.Equal(t, 2, list.Count)
	require.Len(t, list.Workouts, 2)
	assert.True(t, list.Workouts[0].Date.After(list.Workouts[1].Date))

	rr = s.do(t, actor, "GET", "/workouts", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "GET", "/workouts?userId="+user.ID+"&startDate=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, actor, "GET", "/workouts?userId="+user.ID+"&startDate=2024-05-01&endDate=2024-04-01", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, actor, "GET", "/workouts/last-workout/"+session.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	last := decode[lastResponse](t, rr).Workout
	require.NotNil(t, last)
	assert.Equal(t, 2024, last.Date.Year())
	assert.Equal(t, time.May, last.Date.Month())

	rr = s.do(t, actor, "PUT", "/workouts/"+last.ID, `{"user":"`+user.ID+`","session":"`+session.ID+`","note":"felt strong"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[fitness.Workout](t, rr)
	assert.Equal(t, "felt strong", updated.Note)
	assert.True(t, last.Date.Equal(updated.Date))

	_, stranger := s.user(t, "stranger@example.com")
	rr = s.do(t, stranger, "DELETE", "/workouts/"+last.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, actor, "DELETE", "/workouts/"+last.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, actor, "GET", "/workouts/last-workout/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
