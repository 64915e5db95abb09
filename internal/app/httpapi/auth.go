package httpapi

import (
	"net/http"
	"time"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/agent"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/services/accounts"
	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/httputil"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string      `json:"message"`
	User    user.Public `json:"user"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type profileResponse struct {
	User     user.Public       `json:"user"`
	Nodemaps []nodemap.Summary `json:"nodemaps"`
	Agents   []agent.Agent     `json:"agents"`
}

type loginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	profileResponse
}

func newProfileResponse(p accounts.Profile) profileResponse {
	return profileResponse{User: p.User, Nodemaps: p.Nodemaps, Agents: p.Agents}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	created, err := h.app.Accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    created,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.app.Accounts.Login(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Message:         "Login successful",
		AccessToken:     session.AccessToken,
		ExpiresAt:       session.ExpiresAt,
		profileResponse: newProfileResponse(session.Profile),
	})
}

func (h *handler) userData(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.app.Accounts.UserData(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	message := h.app.Accounts.Logout(r.Context(), userID)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": message})
}

func statusOf(err error) int {
	if serviceErr := svcerrors.GetServiceError(err); serviceErr != nil {
		return serviceErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
