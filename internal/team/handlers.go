package team

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// SupplierDirectory resolves the display name used in invitation
// emails.
type SupplierDirectory interface {
	SupplierName(ctx context.Context, supplierID string) (string, error)
}

// Handler exposes the team endpoints.
type Handler struct {
	Service   *Service
	Directory SupplierDirectory
}

func NewHandler(svc *Service, dir SupplierDirectory) *Handler {
	return &Handler{Service: svc, Directory: dir}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Invite)
	r.Put("/{memberID}/status", h.SetStatus)
	r.Delete("/{memberID}", h.Remove)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	members, err := h.Service.List(r.Context(), supplierID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in InviteInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	supplierName := ""
	if h.Directory != nil {
		name, err := h.Directory.SupplierName(r.Context(), supplierID)
		if err == nil {
			supplierName = name
		}
	}
	m, err := h.Service.Invite(r.Context(), supplierID, supplierName, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, m)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in struct {
		Status string `json:"status"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	m, err := h.Service.SetStatus(r.Context(), supplierID, chi.URLParam(r, "memberID"), in.Status)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, m)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	if err := h.Service.Remove(r.Context(), supplierID, chi.URLParam(r, "memberID")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
