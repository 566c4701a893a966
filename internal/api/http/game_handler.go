package http

import (
	"net/http"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/service"
)

type GameHandler struct {
	inventory service.InventoryService
}

func NewGameHandler(inventory service.InventoryService) *GameHandler {
	return &GameHandler{inventory: inventory}
}

func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.inventory.ListGames(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if games == nil {
		games = []domain.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	game, err := h.inventory.GetGame(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var spec domain.GameSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeError(w, r, err)
		return
	}
	game, err := h.inventory.CreateGame(r.Context(), CallerFromContext(r.Context()), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.GamePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	game, err := h.inventory.UpdateGame(r.Context(), CallerFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.inventory.RemoveGame(r.Context(), CallerFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustRequest struct {
	Delta int32 `json:"delta"`
}

// Adjust is the administrative stock correction, e.g. after a hard-deleted
// rental left a copy unaccounted for.
func (h *GameHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	game, err := h.inventory.AdjustQuantity(r.Context(), CallerFromContext(r.Context()), id, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *GameHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.inventory.Reconcile(r.Context(), CallerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
