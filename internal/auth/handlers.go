package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	Service        *Service
	CookieName     string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{
		Service:        svc,
		CookieName:     "refresh_token",
		CookiePath:     "/v1/auth",
		CookieSecure:   secureCookies,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// Mount registers the auth routes on a router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type supplierResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken string           `json:"accessToken"`
	ExpiresIn   int64            `json:"expiresIn"`
	Supplier    supplierResponse `json:"supplier"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := common.Validate(req); err != nil {
		common.RenderError(w, err)
		return
	}
	sup, pair, err := h.Service.Register(r.Context(), req.Name, req.Email, req.Password, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	common.JSON(w, http.StatusCreated, tokenResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
		Supplier:    toSupplierResponse(sup),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := common.Validate(req); err != nil {
		common.RenderError(w, err)
		return
	}
	sup, pair, err := h.Service.Login(r.Context(), req.Email, req.Password, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	common.JSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
		Supplier:    toSupplierResponse(sup),
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := h.refreshTokenFromRequest(r)
	if refresh == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}
	pair, err := h.Service.Refresh(r.Context(), refresh)
	if err != nil {
		h.clearRefreshCookie(w)
		common.RenderError(w, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	common.JSON(w, http.StatusOK, map[string]any{
		"accessToken": pair.AccessToken,
		"expiresIn":   pair.ExpiresIn,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), h.refreshTokenFromRequest(r)); err != nil {
		common.RenderError(w, err)
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated supplier profile. Mounted behind
// RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := common.SupplierID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	sup, err := h.Service.Me(r.Context(), supplierID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toSupplierResponse(sup))
}

func (h *Handler) refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := common.DecodeJSON(r, &body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    token,
		Path:     h.CookiePath,
		MaxAge:   int(h.Service.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     h.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	})
}

func toSupplierResponse(s Supplier) supplierResponse {
	return supplierResponse{ID: s.ID, Name: s.Name, Email: s.Email, CreatedAt: s.CreatedAt}
}
