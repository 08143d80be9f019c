package handlers

import (
	"net/http"
	"strconv"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type routinesListResponse struct {
	Routines []fitness.Routine `json:"routines"`
	Count    int               `json:"count"`
}

// nextSessionResponse carries a null session when the user has no active routine.
type nextSessionResponse struct {
	NextSession *fitness.SessionView `json:"nextSession"`
}

func (h *Handler) HandleListRoutines(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	page, err := pageFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	routines, count, err := h.service.ListRoutines(ctx, r.URL.Query().Get("userId"), page)
	if err != nil {
		writeError(w, err, "list routines")
		return
	}
	pkg.WriteJSON(w, routinesListResponse{Routines: routines, Count: count}, http.StatusOK)
}

// HandleCreateRoutine creates a routine for the user in the body.
func (h *Handler) HandleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.create")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req routineRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	if req.User == nil || *req.User == "" {
		http.Error(w, "error, routine user empty", http.StatusBadRequest)
		return
	}

	h.createRoutine(w, r.WithContext(ctx), actor, req)
}

// HandleCreateRoutineByAdmin creates a routine template. The user in the body
// is optional, without it the routine is global.
func (h *Handler) HandleCreateRoutineByAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.create_admin")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		http.Error(w, "only admins can create routine templates", http.StatusUnauthorized)
		return
	}

	var req routineRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	h.createRoutine(w, r.WithContext(ctx), actor, req)
}

func (h *Handler) createRoutine(w http.ResponseWriter, r *http.Request, actor fitness.Actor, req routineRequest) {
	routine, err := h.service.CreateRoutine(r.Context(), actor, req.input())
	if err != nil {
		writeError(w, err, "create routine")
		return
	}

	log.Debugf("new routine %s [%s]", routine.ID, routine.Owner)
	pkg.WriteJSON(w, routine, http.StatusCreated)
}

// HandleGetRoutine returns the routine with its sessions expanded.
func (h *Handler) HandleGetRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	routine, err := h.service.GetRoutine(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "get routine")
		return
	}
	pkg.WriteJSON(w, routine, http.StatusOK)
}

func (h *Handler) HandleUpdateRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.update")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req routineRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	routine, err := h.service.UpdateRoutine(ctx, actor, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, err, "update routine")
		return
	}
	pkg.WriteJSON(w, routine, http.StatusOK)
}

func (h *Handler) HandleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteRoutine(ctx, actor, id); err != nil {
		writeError(w, err, "delete routine")
		return
	}
	pkg.WriteJSON(w, deletedResponse{DeletedID: id}, http.StatusOK)
}

func (h *Handler) HandleNextSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.next_session")
	defer span.End()

	session, err := h.service.NextSession(ctx, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err, "next session")
		return
	}
	pkg.WriteJSON(w, nextSessionResponse{NextSession: session}, http.StatusOK)
}

func (h *Handler) HandleChangeActive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.change_active")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	routine, err := h.service.ToggleActive(ctx, actor, vars["id"], vars["userId"])
	if err != nil {
		writeError(w, err, "change active routine")
		return
	}

	h.metricsManager.CounterRoutineToggles.WithLabelValues(strconv.FormatBool(routine.Active)).Inc()
	pkg.WriteJSON(w, routine, http.StatusOK)
}

func (h *Handler) HandleUpdateRoutineSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.update_sessions")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req updateRoutineSessionsRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	routine, err := h.service.UpdateSessionMembership(
		ctx, actor, mux.Vars(r)["id"], req.SessionID, fitness.MembershipMode(req.Mode),
	)
	if err != nil {
		writeError(w, err, "update routine sessions")
		return
	}
	pkg.WriteJSON(w, routine, http.StatusOK)
}

func (h *Handler) HandleSkipSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.skip_session")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	routine, err := h.service.SkipSession(ctx, actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "skip session")
		return
	}

	h.metricsManager.CounterSessionsSkipped.Inc()
	pkg.WriteJSON(w, routine, http.StatusOK)
}
