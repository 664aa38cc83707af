package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Handler exposes the chat endpoints, including the websocket stream.
type Handler struct {
	Service  *Service
	Hub      *Hub
	upgrader websocket.Upgrader
}

func NewHandler(svc *Service, hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		Service: svc,
		Hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/rooms", h.ListRooms)
	r.Post("/rooms", h.OpenRoom)
	r.Get("/rooms/{roomID}/messages", h.History)
	r.Post("/rooms/{roomID}/messages", h.Post)
	r.Get("/ws", h.Stream)
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	rooms, err := h.Service.ListRooms(r.Context(), supplierID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if rooms == nil {
		rooms = []Room{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *Handler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in OpenRoomInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	room, err := h.Service.OpenRoom(r.Context(), supplierID, in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, room)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 100)
	messages, err := h.Service.History(r.Context(), supplierID, chi.URLParam(r, "roomID"), limit)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	supplierID, _ := common.SupplierID(r.Context())
	var in struct {
		Body string `json:"body"`
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		common.RenderError(w, err)
		return
	}
	m, err := h.Service.Post(r.Context(), supplierID, chi.URLParam(r, "roomID"), SenderSupplier, in.Body)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, m)
}

// Stream upgrades to a websocket and pushes every message accepted for
// the supplier until the client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := common.SupplierID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.Hub.Register(supplierID, conn)
	defer h.Hub.Unregister(supplierID, conn)

	// drain the read side so pings and close frames are processed
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
