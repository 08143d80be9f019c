package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/2beens/gymrotation/internal/auth"
	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/metrics"
	"github.com/2beens/gymrotation/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Handler is the HTTP surface of the fitness service.
type Handler struct {
	service        *fitness.Service
	metricsManager *metrics.Manager
	validate       *validator.Validate
}

func NewHandler(service *fitness.Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
		validate:       newValidator(),
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.HandleCreateUser).Methods("POST", "OPTIONS").Name("users-create")
	router.HandleFunc("/users/{id}", h.HandleGetUser).Methods("GET", "OPTIONS").Name("users-get")
	router.HandleFunc("/users/{id}", h.HandleUpdateUser).Methods("PUT", "OPTIONS").Name("users-update")
	router.HandleFunc("/users/{id}", h.HandleDeleteUser).Methods("DELETE", "OPTIONS").Name("users-delete")

	router.HandleFunc("/exercises", h.HandleListExercises).Methods("GET", "OPTIONS").Name("exercises-list")
	router.HandleFunc("/exercises", h.HandleCreateExercise).Methods("POST", "OPTIONS").Name("exercises-create")
	router.HandleFunc("/exercises/{id}", h.HandleGetExercise).Methods("GET", "OPTIONS").Name("exercises-get")
	router.HandleFunc("/exercises/{id}", h.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("exercises-update")
	router.HandleFunc("/exercises/{id}", h.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("exercises-delete")

	router.HandleFunc("/sessions", h.HandleCreateSession).Methods("POST", "OPTIONS").Name("sessions-create")
	router.HandleFunc("/sessions/{id}", h.HandleGetSession).Methods("GET", "OPTIONS").Name("sessions-get")
	router.HandleFunc("/sessions/{id}", h.HandleUpdateSession).Methods("PUT", "OPTIONS").Name("sessions-update")
	router.HandleFunc("/sessions/{id}", h.HandleDeleteSession).Methods("DELETE", "OPTIONS").Name("sessions-delete")

	router.HandleFunc("/routines", h.HandleListRoutines).Methods("GET", "OPTIONS").Name("routines-list")
	router.HandleFunc("/routines", h.HandleCreateRoutine).Methods("POST", "OPTIONS").Name("routines-create")
	router.HandleFunc("/routines/admin", h.HandleCreateRoutineByAdmin).Methods("POST", "OPTIONS").Name("routines-create-admin")
	router.HandleFunc("/routines/next-session/{userId}", h.HandleNextSession).Methods("GET", "OPTIONS").Name("routines-next-session")
	router.HandleFunc("/routines/change-active/{id}/{userId}", h.HandleChangeActive).Methods("PUT", "OPTIONS").Name("routines-change-active")
	router.HandleFunc("/routines/update-sessions/{id}", h.HandleUpdateRoutineSessions).Methods("PUT", "OPTIONS").Name("routines-update-sessions")
	router.HandleFunc("/routines/skip-session/{id}", h.HandleSkipSession).Methods("PUT", "OPTIONS").Name("routines-skip-session")
	router.HandleFunc("/routines/{id}", h.HandleGetRoutine).Methods("GET", "OPTIONS").Name("routines-get")
	router.HandleFunc("/routines/{id}", h.HandleUpdateRoutine).Methods("PUT", "OPTIONS").Name("routines-update")
	router.HandleFunc("/routines/{id}", h.HandleDeleteRoutine).Methods("DELETE", "OPTIONS").Name("routines-delete")

	router.HandleFunc("/workouts", h.HandleListWorkouts).Methods("GET", "OPTIONS").Name("workouts-list")
	router.HandleFunc("/workouts", h.HandleLogWorkout).Methods("POST", "OPTIONS").Name("workouts-create")
	router.HandleFunc("/workouts/last-workout/{sessionId}", h.HandleLastWorkout).Methods("GET", "OPTIONS").Name("workouts-last")
	router.HandleFunc("/workouts/{id}", h.HandleGetWorkout).Methods("GET", "OPTIONS").Name("workouts-get")
	router.HandleFunc("/workouts/{id}", h.HandleUpdateWorkout).Methods("PUT", "OPTIONS").Name("workouts-update")
	router.HandleFunc("/workouts/{id}", h.HandleDeleteWorkout).Methods("DELETE", "OPTIONS").Name("workouts-delete")
}

type deletedResponse struct {
	DeletedID string `json:"deletedId"`
}

// writeError answers with the status of the failure kind. Internal failures
// are logged and never shown to the client.
func writeError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, fitness.ErrNotFound):
		log.Tracef("%s: %s", operation, err)
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fitness.ErrConflict):
		log.Tracef("%s: %s", operation, err)
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, fitness.ErrUnauthorized):
		log.Debugf("%s: %s", operation, err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, fitness.ErrValidation):
		log.Tracef("%s: %s", operation, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("%s: %s", operation, err)
		http.Error(w, operation+" failed", http.StatusInternalServerError)
	}
}

// actorFrom returns the caller set by the auth middleware, answering 401 when there is none.
func actorFrom(w http.ResponseWriter, r *http.Request) (fitness.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return fitness.Actor{}, false
	}
	return actor, true
}

// decodeRequest reads a JSON body into req and validates it.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), pkg.ContentType.JSON) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Tracef("unmarshal json request %T: %s", req, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		log.Tracef("validate request %T: %s", req, err)
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

// pageFromQuery reads the from and results query params.
func pageFromQuery(r *http.Request) (fitness.Page, error) {
	var page fitness.Page
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := strconv.Atoi(fromStr)
		if err != nil || from < 0 {
			return page, fmt.Errorf("parameter <from> must be a non negative number")
		}
		page.Skip = from
	}
	if resultsStr := r.URL.Query().Get("results"); resultsStr != "" {
		results, err := strconv.Atoi(resultsStr)
		if err != nil || results < 0 {
			return page, fmt.Errorf("parameter <results> must be a non negative number")
		}
		page.Limit = results
	}
	return page, nil
}
