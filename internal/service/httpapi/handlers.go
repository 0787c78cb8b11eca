package httpapi

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

type handler struct {
	items  domain.ItemRepository
	logger *log.Entry
}

func (h *handler) welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Welcome to the Items API"})
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd, err := req.command()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.items.Create(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := h.items.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	item, err := h.items.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.items.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Item deleted successfully"})
}

func (h *handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Status:  http.StatusNotFound,
		Message: "Not found",
	})
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Status:  http.StatusMethodNotAllowed,
		Message: "Method not allowed",
	})
}
