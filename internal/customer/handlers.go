package customer

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the customer endpoints.
type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

// Mount registers the customer routes. The router is expected to sit
// behind the auth middleware.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{customerID}", h.Get)
	r.Put("/{customerID}", h.Update)
	r.Delete("/{customerID}", h.Delete)
	r.Put("/{customerID}/blocked", h.SetBlocked)
}

type customerResponse struct {
	ID              string    `json:"id"`
	SiteName        string    `json:"siteName"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Blocked         bool      `json:"blocked"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type trendResponse struct {
	customerResponse
	WeekCount     int             `json:"weekCount"`
	WeekCount12   int             `json:"weekCount12"`
	TrendProducts string          `json:"trendProductsOver12Weeks"`
	TrendSpend    decimal.Decimal `json:"trendSpendOver12Weeks"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := common.SupplierID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	filter := ListFilter{
		Search:  r.URL.Query().Get("q"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := r.URL.Query().Get("blocked"); raw != "" {
		blocked, err := strconv.ParseBool(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "blocked must be a boolean", nil)
			return
		}
		filter.Blocked = &blocked
	}
	trends, err := h.Service.ListTrends(r.Context(), supplierID, filter)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]trendResponse, 0, len(trends))
	for _, t := range trends {
		out = append(out, trendResponse{
			customerResponse: toCustomerResponse(t.Customer),
			WeekCount:        t.WeekCount,
			WeekCount12:      t.WeekCount12,
			TrendProducts:    t.TrendProducts,
			TrendSpend:       t.TrendSpend,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"customers": out,
		"page":      page,
		"perPage":   perPage,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	c, err := h.Service.Create(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toCustomerResponse(c))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	c, err := h.Service.Get(r.Context(), supplierID, chi.URLParam(r, "customerID"))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toCustomerResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in struct {
		CreateInput
		Blocked bool `json:"blocked"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	c, err := h.Service.Update(r.Context(), supplierID, chi.URLParam(r, "customerID"), in.CreateInput, in.Blocked)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toCustomerResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	if err := h.Service.Delete(r.Context(), supplierID, chi.URLParam(r, "customerID")); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in struct {
		Blocked bool `json:"blocked"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Service.SetBlocked(r.Context(), supplierID, chi.URLParam(r, "customerID"), in.Blocked); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCustomerResponse(c Customer) customerResponse {
	return customerResponse{
		ID:              c.ID,
		SiteName:        c.SiteName,
		DeliveryAddress: c.DeliveryAddress,
		Phone:           c.Phone,
		Email:           c.Email,
		Blocked:         c.Blocked,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
