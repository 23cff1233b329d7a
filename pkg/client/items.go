package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ItemService handles item-related API calls.
type ItemService struct {
	client *Client
}

// ItemListOptions contains options for listing items.
type ItemListOptions struct {
	ListOptions
	Technology string
	Account    string
	Region     string
	Name       string
	Active     *bool
}

// List retrieves tracked items.
func (s *ItemService) List(ctx context.Context, opts *ItemListOptions) ([]Item, int64, error) {
	query := url.Values{}

	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.Count > 0 {
			query.Set("count", strconv.Itoa(opts.Count))
		}
		if opts.Technology != "" {
			query.Set("technology", opts.Technology)
		}
		if opts.Account != "" {
			query.Set("account", opts.Account)
		}
		if opts.Region != "" {
			query.Set("region", opts.Region)
		}
		if opts.Name != "" {
			query.Set("name", opts.Name)
		}
		if opts.Active != nil {
			query.Set("active", strconv.FormatBool(*opts.Active))
		}
	}

	path := "/api/v1/items"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var items []Item
	total, err := s.client.getList(ctx, path, &items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get retrieves one item with its latest configuration.
func (s *ItemService) Get(ctx context.Context, id int64) (*ItemDetail, error) {
	var detail ItemDetail
	if err := s.client.getData(ctx, "GET", fmt.Sprintf("/api/v1/items/%d", id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Revisions retrieves the revision history of an item.
func (s *ItemService) Revisions(ctx context.Context, id int64, opts *ListOptions) ([]Revision, int64, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.Count > 0 {
			query.Set("count", strconv.Itoa(opts.Count))
		}
	}

	path := fmt.Sprintf("/api/v1/items/%d/revisions", id)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var revisions []Revision
	total, err := s.client.getList(ctx, path, &revisions)
	if err != nil {
		return nil, 0, err
	}
	return revisions, total, nil
}
