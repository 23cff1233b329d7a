package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

// withID injects a chi {id} route parameter the way the router would.
func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type listEnvelope struct {
	Auth struct {
		Authenticated bool `json:"authenticated"`
	} `json:"auth"`
	Page  int             `json:"page"`
	Total int64           `json:"total"`
	Count int             `json:"count"`
	Items json.RawMessage `json:"items"`
}

type successEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listEnvelope {
	t.Helper()
	var env listEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	return env
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) successEnvelope {
	t.Helper()
	var env successEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode success response: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got body %s", rec.Body.String())
	}
	return env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if env.Success {
		t.Fatalf("expected error envelope, got body %s", rec.Body.String())
	}
	return env
}

// seedRepos builds linked account and item mocks with one watched
// account already present.
func seedRepos(t *testing.T) (*testutil.MockAccountRepository, *testutil.MockItemRepository) {
	t.Helper()
	accounts := testutil.NewMockAccountRepository()
	if _, err := accounts.Create(context.Background(), &account.Account{
		Name:       "production",
		Identifier: "123456789012",
		Active:     true,
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return accounts, testutil.NewMockItemRepository(accounts)
}

func seedItem(t *testing.T, items *testutil.MockItemRepository, technology, name string, config json.RawMessage) *item.Item {
	t.Helper()
	ctx := context.Background()
	it, err := items.Upsert(ctx, &item.Item{
		Technology: technology,
		Account:    "123456789012",
		Region:     "us-east-1",
		Name:       name,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if _, err := items.AddRevision(ctx, it.ID, config, true); err != nil {
		t.Fatalf("seed revision: %v", err)
	}
	return it
}
