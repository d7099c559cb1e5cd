package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cpcoders/codetrack/internal/convert"
	"github.com/cpcoders/codetrack/internal/repository"
	"github.com/cpcoders/codetrack/internal/service"
)

// AuthHandler exposes registration, login and profile endpoints.
type AuthHandler struct {
	auth service.AuthService
}

type registerReq struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	userID, err := h.auth.Register(r.Context(), req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"userId": userID})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   string          `json:"expiresAt"`
	User        convert.UserDTO `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	tok, u, err := h.auth.LoginWithIP(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt.UTC().Format(timeLayout),
		User:        convert.ToUserDTO(u),
	})
}

type googleReq struct {
	IDToken string `json:"idToken"`
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	tok, u, err := h.auth.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt.UTC().Format(timeLayout),
		User:        convert.ToUserDTO(u),
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserDTO(*u))
}

type profilePatchReq struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req profilePatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	u, err := h.auth.UpdateProfile(r.Context(), userID, repository.ProfilePatch{
		Username: req.Username,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToUserDTO(*u))
}
