package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/casabrownie/api/internal/database"
	"github.com/casabrownie/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ClientStore defines the database methods needed by client handlers.
type ClientStore interface {
	CreateClient(ctx context.Context, arg database.CreateClientParams) (database.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	ListClients(ctx context.Context) ([]database.Client, error)
	UpdateClient(ctx context.Context, arg database.UpdateClientParams) (database.Client, error)
	DeactivateClient(ctx context.Context, id uuid.UUID) error
}

// ClientHandler handles client endpoints.
type ClientHandler struct {
	store ClientStore
}

func NewClientHandler(store ClientStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// RegisterRoutes registers client endpoints on the given Chi router.
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Deactivate)
}

// --- Request / Response types ---

type clientRequest struct {
	Name             string `json:"name"`
	ClientType       string `json:"client_type"`
	PreferredChannel string `json:"preferred_channel"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	Document         string `json:"document"`
	PriceTier        string `json:"price_tier"`
	PaymentTermDays  int32  `json:"payment_term_days"`
	IsActive         *bool  `json:"is_active"`
}

type clientResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	ClientType       string    `json:"client_type"`
	PreferredChannel string    `json:"preferred_channel"`
	Phone            *string   `json:"phone"`
	Address          *string   `json:"address"`
	Document         *string   `json:"document"`
	PriceTier        string    `json:"price_tier"`
	PaymentTermDays  int32     `json:"payment_term_days"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// --- Handlers ---

// Create handles POST /clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	errMsg := normalizeClientRequest(&req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	client, err := h.store.CreateClient(r.Context(), database.CreateClientParams{
		Name:             req.Name,
		ClientType:       req.ClientType,
		PreferredChannel: req.PreferredChannel,
		Phone:            textOrNullHandler(req.Phone),
		Address:          textOrNullHandler(req.Address),
		Document:         textOrNullHandler(req.Document),
		PriceTier:        req.PriceTier,
		PaymentTermDays:  req.PaymentTermDays,
	})
	if err != nil {
		log.Printf("ERROR: create client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbClientToResponse(client))
}

// List handles GET /clients.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.ListClients(r.Context())
	if err != nil {
		log.Printf("ERROR: list clients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]clientResponse, len(clients))
	for i, c := range clients {
		resp[i] = dbClientToResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	client, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbClientToResponse(client))
}

// Update handles PUT /clients/{id}.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	errMsg := normalizeClientRequest(&req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	client, err := h.store.UpdateClient(r.Context(), database.UpdateClientParams{
		ID:               id,
		Name:             req.Name,
		ClientType:       req.ClientType,
		PreferredChannel: req.PreferredChannel,
		Phone:            textOrNullHandler(req.Phone),
		Address:          textOrNullHandler(req.Address),
		Document:         textOrNullHandler(req.Document),
		PriceTier:        req.PriceTier,
		PaymentTermDays:  req.PaymentTermDays,
		IsActive:         isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: update client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbClientToResponse(client))
}

// Deactivate handles DELETE /clients/{id}. Soft delete.
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	if err := h.store.DeactivateClient(r.Context(), id); err != nil {
		log.Printf("ERROR: deactivate client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func normalizeClientRequest(req *clientRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if req.ClientType == "" {
		req.ClientType = enum.ClientTypePerson
	}
	if req.ClientType != enum.ClientTypePerson && req.ClientType != enum.ClientTypeCompany {
		return "invalid client_type"
	}
	if req.PreferredChannel == "" {
		req.PreferredChannel = enum.ChannelDirect
	}
	if req.PreferredChannel != enum.ChannelDirect && req.PreferredChannel != enum.ChannelWholesale {
		return "invalid preferred_channel"
	}
	if req.PriceTier == "" {
		req.PriceTier = enum.PriceTierRetail
	}
	if req.PriceTier != enum.PriceTierRetail && req.PriceTier != enum.PriceTierWholesale {
		return "invalid price_tier"
	}
	if req.PaymentTermDays < 0 {
		return "payment_term_days must be >= 0"
	}
	return ""
}

func textOrNullHandler(s string) (t pgtype.Text) {
	if s != "" {
		t.String = s
		t.Valid = true
	}
	return t
}

func dbClientToResponse(c database.Client) clientResponse {
	return clientResponse{
		ID:               c.ID,
		Name:             c.Name,
		ClientType:       c.ClientType,
		PreferredChannel: c.PreferredChannel,
		Phone:            textPtr(c.Phone),
		Address:          textPtr(c.Address),
		Document:         textPtr(c.Document),
		PriceTier:        c.PriceTier,
		PaymentTermDays:  c.PaymentTermDays,
		IsActive:         c.IsActive,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
