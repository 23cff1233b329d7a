package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

func TestAccountList(t *testing.T) {
	accounts, _ := seedRepos(t)
	if _, err := accounts.Create(context.Background(), &account.Account{
		Name: "legacy", Identifier: "210987654321", Active: false,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	handler := NewAccountHandler(accounts, testLogger())

	tests := []struct {
		name      string
		query     string
		wantCount int
	}{
		{name: "all accounts", query: "", wantCount: 2},
		{name: "active only", query: "?active=true", wantCount: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts"+tc.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if env := decodeList(t, rec); env.Count != tc.wantCount {
				t.Errorf("count = %d, want %d", env.Count, tc.wantCount)
			}
		})
	}
}

func TestAccountGet(t *testing.T) {
	accounts, _ := seedRepos(t)
	handler := NewAccountHandler(accounts, testLogger())

	rec := httptest.NewRecorder()
	handler.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/accounts/1", nil), "1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeSuccess(t, rec)

	var acct account.Account
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.Identifier != "123456789012" {
		t.Errorf("account = %+v", acct)
	}
}

func TestAccountGetNotFound(t *testing.T) {
	accounts, _ := seedRepos(t)
	handler := NewAccountHandler(accounts, testLogger())

	rec := httptest.NewRecorder()
	handler.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/accounts/9", nil), "9"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != errors.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", env.Error.Code, errors.ErrCodeNotFound)
	}
}
