package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/gymrotation/internal/fitness"
	"github.com/2beens/gymrotation/internal/telemetry/metrics"
	"github.com/2beens/gymrotation/internal/telemetry/tracing"
	"github.com/2beens/gymrotation/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type userAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*fitness.User, error)
	GetUser(ctx context.Context, id string) (*fitness.User, error)
}

type sessionStore interface {
	Login(ctx context.Context, user *fitness.User, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type tokenChecker interface {
	Check(ctx context.Context, token string) (fitness.Actor, bool, error)
	Forget(token string)
}

type Handler struct {
	users          userAuthenticator
	sessions       sessionStore
	checker        tokenChecker
	metricsManager *metrics.Manager
}

func NewHandler(
	users userAuthenticator,
	sessions sessionStore,
	checker tokenChecker,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		users:          users,
		sessions:       sessions,
		checker:        checker,
		metricsManager: metricsManager,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.HandleLogin).Methods("POST", "OPTIONS").Name("auth-login")
	router.HandleFunc("/token", h.HandleToken).Methods("GET", "OPTIONS").Name("auth-token")
	router.HandleFunc("/logout", h.HandleLogout).Methods("GET", "OPTIONS").Name("auth-logout")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *fitness.User `json:"user"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	if !strings.HasPrefix(r.Header.Get("Content-Type"), pkg.ContentType.JSON) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "invalid login request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "error, email or password empty", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, fitness.ErrUnauthorized) {
			log.Tracef("failed login attempt for: %s", req.Email)
			h.metricsManager.CounterLogins.WithLabelValues("failure").Inc()
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login, authenticate: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Login(ctx, user, time.Now())
	if err != nil {
		log.Errorf("login failed, create session: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.metricsManager.CounterLogins.WithLabelValues("success").Inc()
	log.Debugf("new login, user: %s", user.ID)
	pkg.WriteJSON(w, loginResponse{Token: token, User: user}, http.StatusOK)
}

// HandleToken validates the request token and returns the user behind it.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.token")
	defer span.End()

	token := TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	actor, ok, err := h.checker.Check(ctx, token)
	if err != nil {
		log.Errorf("token check: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, fitness.ErrNotFound) {
			// user deleted while logged in
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("token check, get user %s: %s", actor.UserID, err)
		http.Error(w, "token check failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, loginResponse{Token: token, User: user}, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := h.sessions.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	h.checker.Forget(token)

	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}
