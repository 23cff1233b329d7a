package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// IssueService handles audit issue API calls.
type IssueService struct {
	client *Client
}

// IssueListOptions contains options for listing issues.
type IssueListOptions struct {
	ListOptions
	Technology string
	Account    string
	Justified  *bool
	Fixed      *bool
	MinScore   int
}

// JustifyRequest marks an issue as an accepted risk.
type JustifyRequest struct {
	Justification string `json:"justification"`
	User          string `json:"user"`
}

// List retrieves audit issues.
func (s *IssueService) List(ctx context.Context, opts *IssueListOptions) ([]Issue, int64, error) {
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
		if opts.Justified != nil {
			query.Set("justified", strconv.FormatBool(*opts.Justified))
		}
		if opts.Fixed != nil {
			query.Set("fixed", strconv.FormatBool(*opts.Fixed))
		}
		if opts.MinScore > 0 {
			query.Set("min_score", strconv.Itoa(opts.MinScore))
		}
	}

	path := "/api/v1/issues"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var issues []Issue
	total, err := s.client.getList(ctx, path, &issues)
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// Get retrieves one issue.
func (s *IssueService) Get(ctx context.Context, id int64) (*Issue, error) {
	var issue Issue
	if err := s.client.getData(ctx, "GET", fmt.Sprintf("/api/v1/issues/%d", id), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Justify marks an issue as an accepted risk.
func (s *IssueService) Justify(ctx context.Context, id int64, req *JustifyRequest) error {
	return s.client.getData(ctx, "POST", fmt.Sprintf("/api/v1/issues/%d/justify", id), req, nil)
}

// RemoveJustification clears the justification of an issue.
func (s *IssueService) RemoveJustification(ctx context.Context, id int64) error {
	return s.client.getData(ctx, "DELETE", fmt.Sprintf("/api/v1/issues/%d/justify", id), nil, nil)
}

// OpenIncident opens a ticket for an issue and returns the
// confirmation message.
func (s *IssueService) OpenIncident(ctx context.Context, id int64) (string, error) {
	var env successEnvelope
	if err := s.client.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/issues/%d/incident", id), nil, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}
