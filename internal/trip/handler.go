package trip

import (
	"encoding/json"
	"net/http"

	"github.com/01Freebird10/Smart-trip/internal/auth"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ownerID := auth.UserIDFromContext(r.Context())
	t, err := h.repo.CreateTrip(r.Context(), req.Name, ownerID)
	if err != nil {
		http.Error(w, "could not create trip", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"trip":     t,
		"room_key": RoomKey(t.ID),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	trips, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not list trips", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trips)
}
