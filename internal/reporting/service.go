// Package reporting aggregates open issues into chart payloads and the
// periodic summary mail.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/report"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
)

// Service answers chart and feed queries over the audit store. Every
// query takes an optional list of account names; an empty list covers
// all accounts.
type Service struct {
	repo   report.Repository
	logger *logger.Logger
}

func NewService(repo report.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Feed returns the open reportable issues.
func (s *Service) Feed(ctx context.Context, accounts []string, limit int) (*report.Feed, error) {
	items, err := s.repo.OpenIssues(ctx, accounts, limit)
	if err != nil {
		return nil, err
	}
	return &report.Feed{Items: items, Count: len(items)}, nil
}

// Poam returns open issues as plan-of-action-and-milestones rows.
func (s *Service) Poam(ctx context.Context, accounts []string, limit, offset int) ([]report.PoamItem, error) {
	return s.repo.PoamItems(ctx, accounts, limit, offset)
}

// VulnerabilitiesByTechnology aggregates open issues per technology.
func (s *Service) VulnerabilitiesByTechnology(ctx context.Context, accounts []string) ([]report.TechCount, error) {
	return s.repo.CountByTechnology(ctx, accounts)
}

// VulnerabilitiesBySeverity aggregates open issues into severity bands.
func (s *Service) VulnerabilitiesBySeverity(ctx context.Context, accounts []string) ([]report.SeverityCount, error) {
	return s.repo.CountBySeverity(ctx, accounts)
}

// IssuesByMonth aggregates issues by the month their revision appeared.
func (s *Service) IssuesByMonth(ctx context.Context, filter report.MonthFilter) ([]report.MonthCount, error) {
	return s.repo.IssuesByMonth(ctx, filter)
}

// WorldMap aggregates open port probe findings by source coordinates.
// Each point keeps the enrichment data of the first probe seen there.
func (s *Service) WorldMap(ctx context.Context, accounts []string) ([]report.ProbeLocation, error) {
	type coord struct{ lat, lon float64 }
	points := make(map[coord]*report.ProbeLocation)
	var order []coord

	err := s.eachProbeDetail(ctx, accounts, func(d schema.PortProbeDetail) {
		c := coord{lat: d.RemoteIPDetails.GeoLocation.Lat, lon: d.RemoteIPDetails.GeoLocation.Lon}
		p, ok := points[c]
		if !ok {
			p = &report.ProbeLocation{
				Lat:             c.lat,
				Lon:             c.lon,
				CityName:        d.RemoteIPDetails.City.CityName,
				CountryName:     d.RemoteIPDetails.Country.CountryName,
				LocalPort:       d.LocalPortDetails.Port,
				LocalPortName:   d.LocalPortDetails.PortName,
				RemoteIPV4:      d.RemoteIPDetails.IPAddressV4,
				RemoteOrg:       d.RemoteIPDetails.Organization.Org,
				RemoteOrgASN:    d.RemoteIPDetails.Organization.ASN,
				RemoteOrgASNOrg: d.RemoteIPDetails.Organization.ASNOrg,
				RemoteOrgISP:    d.RemoteIPDetails.Organization.ISP,
			}
			points[c] = p
			order = append(order, c)
		}
		p.Count++
	})
	if err != nil {
		return nil, err
	}

	out := make([]report.ProbeLocation, 0, len(order))
	for _, c := range order {
		out = append(out, *points[c])
	}
	return out, nil
}

// TopCountries aggregates open port probe findings by source country,
// most probed first.
func (s *Service) TopCountries(ctx context.Context, accounts []string, n int) ([]report.CountryCount, error) {
	counts := make(map[string]int64)
	var order []string

	err := s.eachProbeDetail(ctx, accounts, func(d schema.PortProbeDetail) {
		country := d.RemoteIPDetails.Country.CountryName
		if country == "" {
			return
		}
		if _, ok := counts[country]; !ok {
			order = append(order, country)
		}
		counts[country]++
	})
	if err != nil {
		return nil, err
	}

	out := make([]report.CountryCount, 0, len(order))
	for _, country := range order {
		out = append(out, report.CountryCount{Country: country, Count: counts[country]})
	}
	sortCountries(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// eachProbeDetail walks the port probe details of every open detection
// finding. Configs that do not parse or carry no probe data are skipped.
func (s *Service) eachProbeDetail(ctx context.Context, accounts []string, fn func(schema.PortProbeDetail)) error {
	configs, err := s.repo.OpenDetectionConfigs(ctx, accounts)
	if err != nil {
		return err
	}
	for _, raw := range configs {
		var detail schema.GuardDutyDetail
		if err := schema.Decode(raw, &detail); err != nil {
			continue
		}
		if detail.Service == nil || detail.Service.Action == nil || detail.Service.Action.PortProbeAction == nil {
			continue
		}
		for _, d := range detail.Service.Action.PortProbeAction.PortProbeDetails {
			fn(d)
		}
	}
	return nil
}

func sortCountries(counts []report.CountryCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
}

// Summary is the data behind one periodic report mail.
type Summary struct {
	GeneratedAt      time.Time
	Account          string
	TopIssues        []report.TopIssue
	TopTechnologies  []report.TechCount
	RecentChanges    []report.FeedItem
	RecentlyResolved []report.FeedItem
	OpenIssues       []report.FeedItem
}

// BuildSummary gathers the sections of the periodic report, looking
// back over the given window.
func (s *Service) BuildSummary(ctx context.Context, accounts []string, window time.Duration) (*Summary, error) {
	now := time.Now().UTC()
	since := now.Add(-window)

	topIssues, err := s.repo.TopIssues(ctx, accounts, 5)
	if err != nil {
		return nil, err
	}
	topTech, err := s.repo.TopTechnologies(ctx, accounts, 5)
	if err != nil {
		return nil, err
	}
	changes, err := s.repo.RecentChanges(ctx, accounts, since, 25)
	if err != nil {
		return nil, err
	}
	resolved, err := s.repo.RecentlyResolved(ctx, accounts, since, 10)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.OpenIssues(ctx, accounts, 100)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		GeneratedAt:      now,
		TopIssues:        topIssues,
		TopTechnologies:  topTech,
		RecentChanges:    changes,
		RecentlyResolved: resolved,
		OpenIssues:       open,
	}
	if len(accounts) == 1 {
		summary.Account = accounts[0]
	}
	return summary, nil
}
