package handlers

import (
	"net/http"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesListResponse struct {
	Exercises []fitness.Exercise `json:"exercises"`
	Count     int                `json:"count"`
}

func (h *Handler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	page, err := pageFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	exercises, count, err := h.service.ListExercises(ctx, fitness.ExerciseQuery{
		UserID:     query.Get("userId"),
		Difficulty: fitness.Difficulty(query.Get("difficulty")),
		Muscle:     fitness.Muscle(query.Get("muscle")),
		Text:       query.Get("text"),
	}, page)
	if err != nil {
		writeError(w, err, "list exercises")
		return
	}

	pkg.WriteJSON(w, exercisesListResponse{Exercises: exercises, Count: count}, http.StatusOK)
}

func (h *Handler) HandleCreateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.create")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req exerciseRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	exercise, err := h.service.CreateExercise(ctx, actor, req.input())
	if err != nil {
		writeError(w, err, "create exercise")
		return
	}

	log.Debugf("new exercise added: %s [%s]", exercise.Name, exercise.Owner)
	pkg.WriteJSON(w, exercise, http.StatusCreated)
}

func (h *Handler) HandleGetExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	exercise, err := h.service.GetExercise(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "get exercise")
		return
	}
	pkg.WriteJSON(w, exercise, http.StatusOK)
}

func (h *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req exerciseRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	exercise, err := h.service.UpdateExercise(ctx, actor, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, err, "update exercise")
		return
	}
	pkg.WriteJSON(w, exercise, http.StatusOK)
}

func (h *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteExercise(ctx, actor, id); err != nil {
		writeError(w, err, "delete exercise")
		return
	}
	pkg.WriteJSON(w, deletedResponse{DeletedID: id}, http.StatusOK)
}
