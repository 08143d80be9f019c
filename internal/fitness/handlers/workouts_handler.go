package handlers

import (
	"net/http"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutsListResponse struct {
	Workouts []fitness.Workout `json:"workouts"`
	Count    int               `json:"count"`
}

type lastWorkoutResponse struct {
	Workout *fitness.Workout `json:"workout"`
}

func (h *Handler) HandleListWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	page, err := pageFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	userID := query.Get("userId")
	if userID == "" {
		http.Error(w, "parameter <userId> is required", http.StatusBadRequest)
		return
	}
	from, err := parseDate(query.Get("startDate"), false)
	if err != nil {
		http.Error(w, "parameter <startDate>: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseDate(query.Get("endDate"), true)
	if err != nil {
		http.Error(w, "parameter <endDate>: "+err.Error(), http.StatusBadRequest)
		return
	}

	workouts, count, err := h.service.ListWorkouts(ctx, fitness.WorkoutFilter{
		UserID: userID,
		From:   from,
		To:     to,
	}, page)
	if err != nil {
		writeError(w, err, "list workouts")
		return
	}
	pkg.WriteJSON(w, workoutsListResponse{Workouts: workouts, Count: count}, http.StatusOK)
}

// HandleLogWorkout stores a performed session and moves its routine on.
func (h *Handler) HandleLogWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req workoutRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	workout, err := h.service.LogWorkout(ctx, actor, req.input())
	if err != nil {
		writeError(w, err, "log workout")
		return
	}

	h.metricsManager.CounterWorkoutsLogged.Inc()
	log.Debugf("workout logged: %s, session %s, routine %s", workout.ID, workout.SessionID, workout.RoutineID)
	pkg.WriteJSON(w, workout, http.StatusCreated)
}

func (h *Handler) HandleGetWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	workout, err := h.service.GetWorkout(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "get workout")
		return
	}
	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleLastWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.last")
	defer span.End()

	workout, err := h.service.LastWorkout(ctx, mux.Vars(r)["sessionId"])
	if err != nil {
		writeError(w, err, "last workout")
		return
	}
	pkg.WriteJSON(w, lastWorkoutResponse{Workout: workout}, http.StatusOK)
}

func (h *Handler) HandleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req workoutRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	workout, err := h.service.UpdateWorkout(ctx, actor, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, err, "update workout")
		return
	}
	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteWorkout(ctx, actor, id); err != nil {
		writeError(w, err, "delete workout")
		return
	}
	pkg.WriteJSON(w, deletedResponse{DeletedID: id}, http.StatusOK)
}
