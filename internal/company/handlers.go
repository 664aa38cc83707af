package company

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the company profile endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Save)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	p, err := h.Service.Get(r.Context(), supplierID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, p)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	p, err := h.Service.Save(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, p)
}
