package uploads

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the upload presign endpoint.
type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/presign", h.Presign)
}

func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in PresignInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	res, err := h.Service.IssueURL(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, res)
}
