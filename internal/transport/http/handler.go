package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cybermaze-gateway/internal/app"
	"cybermaze-gateway/internal/domain"
	"go.uber.org/zap"
)

// Handler exposes the uniform client contract to the single-page app.
// Every response uses the {success, data} / {success, error} envelope
// and list payloads are never null.
type Handler struct {
	client   app.Client
	platform app.PlatformOps
	window   domain.EventWindow
	log      *zap.Logger
}

func NewHandler(client app.Client, platform app.PlatformOps, window domain.EventWindow, log *zap.Logger) *Handler {
	return &Handler{client: client, platform: platform, window: window, log: log}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/challenges", h.listChallenges)
	mux.HandleFunc("GET /api/v1/challenges/{id}", h.getChallenge)
	mux.HandleFunc("GET /api/v1/challenges/{id}/solves", h.getChallengeSolves)
	mux.HandleFunc("POST /api/v1/challenges/attempt", h.submitFlag)

	mux.HandleFunc("GET /api/v1/scoreboard", h.getScoreboard)

	mux.HandleFunc("GET /api/v1/users", h.listUsers)
	mux.HandleFunc("GET /api/v1/users/me", h.currentUser)
	mux.HandleFunc("PATCH /api/v1/users/me", h.updateProfile)
	mux.HandleFunc("GET /api/v1/users/{id}", h.getUser)
	mux.HandleFunc("GET /api/v1/users/{id}/solves", h.getUserSolves)
	mux.HandleFunc("GET /api/v1/users/{id}/awards", h.getUserAwards)

	mux.HandleFunc("GET /api/v1/teams", h.listTeams)
	mux.HandleFunc("GET /api/v1/teams/{id}", h.getTeam)
	mux.HandleFunc("POST /api/v1/teams/new", h.createTeam)
	mux.HandleFunc("POST /api/v1/teams/join", h.joinTeam)
	mux.HandleFunc("POST /api/v1/teams/leave", h.leaveTeam)

	mux.HandleFunc("GET /api/v1/configs", h.getConfig)
	mux.HandleFunc("GET /api/v1/session", h.checkAuth)
	mux.HandleFunc("GET /api/v1/notifications", h.getNotifications)

	mux.HandleFunc("POST /api/v1/login", h.login)
	mux.HandleFunc("POST /api/v1/register", h.register)
	mux.HandleFunc("POST /api/v1/logout", h.logout)

	mux.HandleFunc("GET /api/v1/tokens", h.listTokens)
	mux.HandleFunc("POST /api/v1/tokens", h.createToken)
	mux.HandleFunc("DELETE /api/v1/tokens/{id}", h.deleteToken)

	mux.HandleFunc("GET /api/v1/containers/{id}", h.getContainer)
	mux.HandleFunc("POST /api/v1/containers/{id}", h.createContainer)
	mux.HandleFunc("PATCH /api/v1/containers/{id}", h.renewContainer)
	mux.HandleFunc("DELETE /api/v1/containers", h.destroyContainer)
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response{Success: true, Data: data}); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto statuses. Disabled
// operations answer 200 with a graceful explanatory message: archive
// deployments must never look like a server failure to the UI.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrDisabled):
		status = http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrRequestFailed):
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: false, Error: err.Error()})
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.client.ListChallenges(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, challenges)
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	challenge, err := h.client.GetChallenge(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, challenge)
}

func (h *Handler) getChallengeSolves(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	solvers, err := h.client.GetChallengeSolves(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, solvers)
}

func (h *Handler) submitFlag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChallengeID int    `json:"challenge_id"`
		Submission  string `json:"submission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	result, err := h.client.SubmitFlag(r.Context(), body.ChallengeID, body.Submission)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

func (h *Handler) getScoreboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.client.GetScoreboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, rows)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.client.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user, err := h.client.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, user)
}

func (h *Handler) getUserSolves(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	solves, err := h.client.GetUserSolves(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, solves)
}

func (h *Handler) getUserAwards(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	awards, err := h.client.GetUserAwards(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, awards)
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.client.ListTeams(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, teams)
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	team, err := h.client.GetTeam(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, team)
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	if err := h.client.CreateTeam(r.Context(), body.Name, body.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

func (h *Handler) joinTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	if err := h.client.JoinTeam(r.Context(), body.Name, body.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

func (h *Handler) leaveTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.client.LeaveTeam(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

// getConfig merges the event identity from the data source with the
// injected host-page window (timing, dark hour, viewer privileges).
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	info, err := h.client.GetConfig(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, struct {
		domain.EventInfo
		Window domain.EventWindow `json:"window"`
	}{EventInfo: info, Window: h.window})
}

func (h *Handler) checkAuth(w http.ResponseWriter, r *http.Request) {
	user, err := h.client.CheckAuth(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, struct {
		Authenticated bool                `json:"authenticated"`
		User          *domain.SessionUser `json:"user"`
	}{Authenticated: user != nil, User: user})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.client.CurrentUser(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	if err := h.client.UpdateProfile(r.Context(), update); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

func (h *Handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	sinceID, _ := strconv.Atoi(r.URL.Query().Get("since_id"))
	notifications, err := h.client.GetNotifications(r.Context(), sinceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, notifications)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	user, err := h.client.Login(r.Context(), body.Name, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, user)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name             string `json:"name"`
		Email            string `json:"email"`
		Password         string `json:"password"`
		RegistrationCode string `json:"registration_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, domain.ErrRequestFailed)
		return
	}
	user, err := h.client.Register(r.Context(), body.Name, body.Email, body.Password, body.RegistrationCode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

func (h *Handler) listTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.platform.ListTokens(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, tokens)
}

func (h *Handler) createToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Expiration string `json:"expiration"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	token, err := h.platform.CreateToken(r.Context(), body.Expiration)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, token)
}

func (h *Handler) deleteToken(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.platform.DeleteToken(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}

func (h *Handler) getContainer(w http.ResponseWriter, r *http.Request) {
	h.containerOp(w, r, h.platform.GetContainer)
}

func (h *Handler) createContainer(w http.ResponseWriter, r *http.Request) {
	h.containerOp(w, r, h.platform.CreateContainer)
}

func (h *Handler) renewContainer(w http.ResponseWriter, r *http.Request) {
	h.containerOp(w, r, h.platform.RenewContainer)
}

func (h *Handler) containerOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, challengeID int) (domain.ContainerInfo, error)) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	info, err := op(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, info)
}

func (h *Handler) destroyContainer(w http.ResponseWriter, r *http.Request) {
	if err := h.platform.DestroyContainer(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, nil)
}
