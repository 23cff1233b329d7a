package handlers

import (
	"net/http"

	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
)

// ItemHandler serves tracked configuration items and their revisions.
type ItemHandler struct {
	items  item.Repository
	logger *logger.Logger
}

func NewItemHandler(items item.Repository, log *logger.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: log}
}

// List returns items with pagination and filtering.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePagination(r)
	q := r.URL.Query()

	filter := item.Filter{
		Technology: q.Get("technology"),
		Account:    q.Get("account"),
		Region:     q.Get("region"),
		Name:       q.Get("name"),
		Active:     boolQuery(r, "active"),
	}

	items, total, err := h.items.List(r.Context(), filter, p.PageSize, p.Offset)
	if err != nil {
		writeError(w, err, "Failed to list items")
		return
	}

	utils.WriteList(w, p.Page, len(items), total, items)
}

// Get returns one item with its latest stored configuration.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get item")
		return
	}

	rev, err := h.items.GetLatestRevision(r.Context(), it.ID)
	if err != nil {
		writeError(w, err, "Failed to load item revision")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"item":     it,
		"revision": rev,
	})
}

// Revisions returns the stored configuration history of an item.
func (h *ItemHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	p := utils.ParsePagination(r)
	revisions, total, err := h.items.ListRevisions(r.Context(), id, p.PageSize, p.Offset)
	if err != nil {
		writeError(w, err, "Failed to list revisions")
		return
	}

	utils.WriteList(w, p.Page, len(revisions), total, revisions)
}
