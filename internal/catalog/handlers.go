package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the product endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// Mount registers the product routes behind auth.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{productID}", h.Get)
	r.Put("/{productID}", h.Update)
	r.Delete("/{productID}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	page, perPage := common.ParsePagination(r, 50)
	products, total, err := h.Service.List(r.Context(), supplierID, r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
		"page":     page,
		"perPage":  perPage,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	p, err := h.Service.Create(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	p, err := h.Service.Get(r.Context(), supplierID, chi.URLParam(r, "productID"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	p, err := h.Service.Update(r.Context(), supplierID, chi.URLParam(r, "productID"), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	if err := h.Service.Delete(r.Context(), supplierID, chi.URLParam(r, "productID")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
