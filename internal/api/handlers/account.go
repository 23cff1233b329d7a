package handlers

import (
	"net/http"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
)

// AccountHandler serves the watched accounts.
type AccountHandler struct {
	accounts account.Repository
	logger   *logger.Logger
}

func NewAccountHandler(accounts account.Repository, log *logger.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: log}
}

// List returns the watched accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if b := boolQuery(r, "active"); b != nil {
		activeOnly = *b
	}

	accounts, err := h.accounts.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, err, "Failed to list accounts")
		return
	}
	utils.WriteList(w, 1, len(accounts), int64(len(accounts)), accounts)
}

// Get returns one account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get account")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, acct)
}
