package order

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/pricing"
)

// Handler exposes the order endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// Mount registers the order routes. The router is expected to sit
// behind the auth middleware.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/preview", h.Preview)
	r.Get("/{orderID}", h.Get)
	r.Put("/{orderID}", h.Update)
	r.Delete("/{orderID}", h.Delete)
	r.Put("/{orderID}/status", h.SetStatus)
}

type orderResponse struct {
	ID              string             `json:"id"`
	OrderNo         int64              `json:"orderNo"`
	CustomerID      string             `json:"customerId"`
	Status          Status             `json:"status"`
	DiscountPercent float64            `json:"discountPercent"`
	TaxPercent      float64            `json:"taxPercent"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Total           decimal.Decimal    `json:"total"`
	Items           []pricing.LineItem `json:"items,omitempty"`
	IssuedAt        time.Time          `json:"issuedAt"`
	DueAt           time.Time          `json:"dueAt"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	o, err := h.Service.Create(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toOrderResponse(o))
}

// Preview prices the submitted items without persisting anything. The
// order editor calls this on every change.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Items           []pricing.LineItem `json:"items"`
		DiscountPercent *float64           `json:"discountPercent"`
		TaxPercent      *float64           `json:"taxPercent"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	disc := h.Service.DefaultDiscount
	if in.DiscountPercent != nil {
		disc = *in.DiscountPercent
	}
	tax := h.Service.DefaultTax
	if in.TaxPercent != nil {
		tax = *in.TaxPercent
	}
	common.JSON(w, http.StatusOK, pricing.Compute(in.Items, disc, tax))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	o, err := h.Service.Get(r.Context(), supplierID, chi.URLParam(r, "orderID"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	page, perPage := common.ParsePagination(r, 50)
	f := ListFilter{
		Status:     Status(r.URL.Query().Get("status")),
		CustomerID: r.URL.Query().Get("customerId"),
		Page:       page,
		PerPage:    perPage,
	}
	if raw := r.URL.Query().Get("issuedFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "issuedFrom must be RFC 3339", nil)
			return
		}
		f.IssuedFrom = t
	}
	if raw := r.URL.Query().Get("issuedTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "issuedTo must be RFC 3339", nil)
			return
		}
		f.IssuedTo = t
	}
	orders, total, err := h.Service.List(r.Context(), supplierID, f)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders":  out,
		"total":   total,
		"page":    page,
		"perPage": perPage,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	o, err := h.Service.Update(r.Context(), supplierID, chi.URLParam(r, "orderID"), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	if err := h.Service.Delete(r.Context(), supplierID, chi.URLParam(r, "orderID")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in struct {
		Status Status `json:"status"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Service.SetStatus(r.Context(), supplierID, chi.URLParam(r, "orderID"), in.Status); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toOrderResponse(o Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		DiscountPercent: o.DiscountPercent,
		TaxPercent:      o.TaxPercent,
		Subtotal:        o.Subtotal,
		Total:           o.Total,
		Items:           o.Items,
		IssuedAt:        o.IssuedAt,
		DueAt:           o.DueAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
