package client

import (
	"context"
	"fmt"
	"strconv"
)

// AccountService handles watched account API calls.
type AccountService struct {
	client *Client
}

// List retrieves the watched accounts. With activeOnly set, inactive
// accounts are excluded.
func (s *AccountService) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	path := "/api/v1/accounts"
	if activeOnly {
		path += "?active=" + strconv.FormatBool(activeOnly)
	}

	var accounts []Account
	if _, err := s.client.getList(ctx, path, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Get retrieves one account.
func (s *AccountService) Get(ctx context.Context, id int64) (*Account, error) {
	var acct Account
	if err := s.client.getData(ctx, "GET", fmt.Sprintf("/api/v1/accounts/%d", id), nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
