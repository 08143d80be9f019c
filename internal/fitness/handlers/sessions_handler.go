package handlers

import (
	"net/http"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
)

// Sessions are shared records. Any logged in user may change them.

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.create")
	defer span.End()

	var req sessionRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	session, err := h.service.CreateSession(ctx, req.input())
	if err != nil {
		writeError(w, err, "create session")
		return
	}
	pkg.WriteJSON(w, session, http.StatusCreated)
}

// HandleGetSession returns the session with its exercises expanded.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	session, err := h.service.GetSession(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "get session")
		return
	}
	pkg.WriteJSON(w, session, http.StatusOK)
}

func (h *Handler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.update")
	defer span.End()

	var req sessionRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	session, err := h.service.UpdateSession(ctx, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, err, "update session")
		return
	}
	pkg.WriteJSON(w, session, http.StatusOK)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteSession(ctx, id); err != nil {
		writeError(w, err, "delete session")
		return
	}
	pkg.WriteJSON(w, deletedResponse{DeletedID: id}, http.StatusOK)
}
