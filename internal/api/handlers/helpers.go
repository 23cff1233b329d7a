package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
)

// writeError sends an AppError as-is and wraps anything else as an
// internal error.
func writeError(w http.ResponseWriter, err error, message string) {
	if appErr, ok := err.(*errors.AppError); ok {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, errors.Internal(message, err))
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("Invalid id")
	}
	return id, nil
}

// accountsQuery parses the comma-separated accounts query parameter,
// returning nil when absent.
func accountsQuery(r *http.Request) []string {
	raw := r.URL.Query().Get("accounts")
	if raw == "" {
		return nil
	}
	var accounts []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			accounts = append(accounts, name)
		}
	}
	return accounts
}

// boolQuery parses an optional boolean query parameter, returning nil
// when absent.
func boolQuery(r *http.Request, name string) *bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}
