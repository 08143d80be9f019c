package handlers

import (
	"net/http"

	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// HandleCreateUser registers a new user. It is open, no token needed.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.create")
	defer span.End()

	var req createUserRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(ctx, req.input())
	if err != nil {
		writeError(w, err, "create user")
		return
	}

	h.metricsManager.CounterUsersRegistered.Inc()
	log.Debugf("new user registered: %s", user.ID)
	pkg.WriteJSON(w, user, http.StatusCreated)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.get")
	defer span.End()

	user, err := h.service.GetUser(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "get user")
		return
	}
	pkg.WriteJSON(w, user, http.StatusOK)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.update")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(ctx, actor, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeError(w, err, "update user")
		return
	}
	pkg.WriteJSON(w, user, http.StatusOK)
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.delete")
	defer span.End()

	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteUser(ctx, actor, id); err != nil {
		writeError(w, err, "delete user")
		return
	}

	log.Debugf("user %s deleted by %s", id, actor.UserID)
	pkg.WriteJSON(w, deletedResponse{DeletedID: id}, http.StatusOK)
}
