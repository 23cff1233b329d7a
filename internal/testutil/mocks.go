package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/event"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

// MockAccountRepository is an in-memory implementation of account.Repository.
type MockAccountRepository struct {
	Accounts    map[int64]*account.Account
	NextID      int64
	CreateError error
	GetError    error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int64]*account.Account),
		NextID:   1,
	}
}

func (m *MockAccountRepository) Create(ctx context.Context, a *account.Account) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	a.ID = m.NextID
	m.NextID++
	m.Accounts[a.ID] = a
	return a.ID, nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	a, ok := m.Accounts[id]
	if !ok {
		return nil, errors.NotFound("Account")
	}
	return a, nil
}

func (m *MockAccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*account.Account, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, a := range m.Accounts {
		if a.Identifier == identifier {
			return a, nil
		}
	}
	return nil, errors.NotFound("Account")
}

func (m *MockAccountRepository) List(ctx context.Context, activeOnly bool) ([]*account.Account, error) {
	var out []*account.Account
	for _, a := range m.Accounts {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, a *account.Account) error {
	if _, ok := m.Accounts[a.ID]; !ok {
		return errors.NotFound("Account")
	}
	m.Accounts[a.ID] = a
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.Accounts[id]; !ok {
		return errors.NotFound("Account")
	}
	delete(m.Accounts, id)
	return nil
}

// MockItemRepository is an in-memory implementation of item.Repository.
// Accounts referenced by items must exist in the linked account
// repository, mirroring the database foreign key.
type MockItemRepository struct {
	AccountRepo  *MockAccountRepository
	Items        map[int64]*item.Item
	Revisions    map[int64][]*item.Revision
	technologies map[string]int64
	NextID       int64
	NextRevID    int64
	UpsertError  error
	RevisionErr  error
}

func NewMockItemRepository(accounts *MockAccountRepository) *MockItemRepository {
	return &MockItemRepository{
		AccountRepo:  accounts,
		Items:        make(map[int64]*item.Item),
		Revisions:    make(map[int64][]*item.Revision),
		technologies: make(map[string]int64),
		NextID:       1,
		NextRevID:    1,
	}
}

func (m *MockItemRepository) EnsureTechnology(ctx context.Context, name string) (int64, error) {
	if id, ok := m.technologies[name]; ok {
		return id, nil
	}
	id := int64(len(m.technologies) + 1)
	m.technologies[name] = id
	return id, nil
}

func (m *MockItemRepository) Upsert(ctx context.Context, it *item.Item) (*item.Item, error) {
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}

	existing, err := m.Find(ctx, it.Technology, it.Account, it.Region, it.Name)
	if err == nil {
		if it.ARN != "" {
			existing.ARN = it.ARN
		}
		return existing, nil
	}

	var acct *account.Account
	for _, a := range m.AccountRepo.Accounts {
		if a.Name == it.Account || a.Identifier == it.Account {
			acct = a
			break
		}
	}
	if acct == nil {
		return nil, errors.NotFound("Account")
	}

	techID, _ := m.EnsureTechnology(ctx, it.Technology)
	stored := &item.Item{
		ID:         m.NextID,
		TechID:     techID,
		Technology: it.Technology,
		AccountID:  acct.ID,
		Account:    acct.Name,
		Region:     it.Region,
		Name:       it.Name,
		ARN:        it.ARN,
	}
	m.NextID++
	m.Items[stored.ID] = stored
	return stored, nil
}

func (m *MockItemRepository) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	it, ok := m.Items[id]
	if !ok {
		return nil, errors.NotFound("Item")
	}
	return it, nil
}

func (m *MockItemRepository) Find(ctx context.Context, technology, accountIdentifier, region, name string) (*item.Item, error) {
	for _, it := range m.Items {
		if it.Technology != technology || it.Region != region || it.Name != name {
			continue
		}
		if it.Account == accountIdentifier {
			return it, nil
		}
		if a, ok := m.AccountRepo.Accounts[it.AccountID]; ok && a.Identifier == accountIdentifier {
			return it, nil
		}
	}
	return nil, errors.NotFound("Item")
}

func (m *MockItemRepository) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, int64, error) {
	var matched []*item.Item
	for _, it := range m.Items {
		if filter.Technology != "" && it.Technology != filter.Technology {
			continue
		}
		if filter.Account != "" && it.Account != filter.Account {
			continue
		}
		if filter.Region != "" && it.Region != filter.Region {
			continue
		}
		if filter.Name != "" && it.Name != filter.Name {
			continue
		}
		if filter.Active != nil {
			rev, err := m.GetLatestRevision(ctx, it.ID)
			if err != nil || rev.Active != *filter.Active {
				continue
			}
		}
		matched = append(matched, it)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MockItemRepository) ListByTechnology(ctx context.Context, technology string) ([]*item.Item, error) {
	var out []*item.Item
	for _, it := range m.Items {
		if it.Technology == technology {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockItemRepository) AddRevision(ctx context.Context, itemID int64, config json.RawMessage, active bool) (*item.Revision, error) {
	if m.RevisionErr != nil {
		return nil, m.RevisionErr
	}
	it, ok := m.Items[itemID]
	if !ok {
		return nil, errors.NotFound("Item")
	}

	for _, prev := range m.Revisions[itemID] {
		prev.Active = false
	}

	rev := &item.Revision{
		ID:          m.NextRevID,
		ItemID:      itemID,
		Config:      config,
		Active:      active,
		DateCreated: time.Now(),
	}
	m.NextRevID++
	m.Revisions[itemID] = append(m.Revisions[itemID], rev)
	it.LatestRevisionID = rev.ID
	return rev, nil
}

func (m *MockItemRepository) GetLatestRevision(ctx context.Context, itemID int64) (*item.Revision, error) {
	revs := m.Revisions[itemID]
	if len(revs) == 0 {
		return nil, errors.NotFound("Revision")
	}
	return revs[len(revs)-1], nil
}

func (m *MockItemRepository) ListRevisions(ctx context.Context, itemID int64, limit, offset int) ([]*item.Revision, int64, error) {
	revs := m.Revisions[itemID]
	// Newest first
	out := make([]*item.Revision, len(revs))
	for i, rev := range revs {
		out[len(revs)-1-i] = rev
	}

	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockItemRepository) TouchEphemeral(ctx context.Context, revisionID int64) error {
	for _, revs := range m.Revisions {
		for _, rev := range revs {
			if rev.ID == revisionID {
				now := time.Now()
				rev.DateLastEphemeralChange = &now
				return nil
			}
		}
	}
	return errors.NotFound("Revision")
}

func (m *MockItemRepository) Deactivate(ctx context.Context, itemID int64) error {
	rev, err := m.GetLatestRevision(ctx, itemID)
	if err != nil {
		return err
	}
	rev.Active = false
	return nil
}

// MockAuditRepository is an in-memory implementation of audit.Repository.
type MockAuditRepository struct {
	Issues         map[int64]*audit.Issue
	Settings       map[string]*audit.AuditorSettings
	NextID         int64
	NextSettingsID int64
	CreateError    error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{
		Issues:         make(map[int64]*audit.Issue),
		Settings:       make(map[string]*audit.AuditorSettings),
		NextID:         1,
		NextSettingsID: 1,
	}
}

func (m *MockAuditRepository) Create(ctx context.Context, issue *audit.Issue) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	issue.ID = m.NextID
	issue.DateCreated = time.Now()
	m.NextID++
	m.Issues[issue.ID] = issue
	return issue.ID, nil
}

func (m *MockAuditRepository) GetByID(ctx context.Context, id int64) (*audit.Issue, error) {
	issue, ok := m.Issues[id]
	if !ok {
		return nil, errors.NotFound("Issue")
	}
	return issue, nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Issue, int64, error) {
	var matched []*audit.Issue
	for _, issue := range m.Issues {
		if filter.Justified != nil && issue.Justified != *filter.Justified {
			continue
		}
		if filter.Fixed != nil && issue.Fixed != *filter.Fixed {
			continue
		}
		if filter.MinScore > 0 && issue.Score < filter.MinScore {
			continue
		}
		matched = append(matched, issue)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MockAuditRepository) ListByItem(ctx context.Context, itemID int64, includeFixed bool) ([]*audit.Issue, error) {
	var out []*audit.Issue
	for _, issue := range m.Issues {
		if issue.ItemID != itemID {
			continue
		}
		if !includeFixed && issue.Fixed {
			continue
		}
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAuditRepository) Reconcile(ctx context.Context, itemID int64, found []*audit.Issue) (int, int, int, error) {
	existing := make(map[audit.Key]*audit.Issue)
	for _, issue := range m.Issues {
		if issue.ItemID == itemID && !issue.Fixed {
			existing[issue.Key()] = issue
		}
	}

	created, kept := 0, 0
	matched := make(map[audit.Key]bool)
	seen := make(map[audit.Key]bool)
	for _, f := range found {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := existing[key]; ok {
			matched[key] = true
			kept++
			continue
		}
		issue := &audit.Issue{
			ItemID:             itemID,
			Score:              f.Score,
			Issue:              f.Issue,
			Notes:              f.Notes,
			ActionInstructions: f.ActionInstructions,
		}
		if _, err := m.Create(ctx, issue); err != nil {
			return created, kept, 0, err
		}
		created++
	}

	fixed := 0
	for key, issue := range existing {
		if !matched[key] {
			issue.Fixed = true
			fixed++
		}
	}
	return created, kept, fixed, nil
}

func (m *MockAuditRepository) EnsureAuditorSettings(ctx context.Context, auditorClass, technology, account, issueText string) (*audit.AuditorSettings, error) {
	key := auditorClass + "|" + technology + "|" + account
	if s, ok := m.Settings[key]; ok {
		return s, nil
	}
	s := &audit.AuditorSettings{
		ID:           m.NextSettingsID,
		Technology:   technology,
		Account:      account,
		AuditorClass: auditorClass,
		IssueText:    issueText,
	}
	m.NextSettingsID++
	m.Settings[key] = s
	return s, nil
}

func (m *MockAuditRepository) ListAuditorSettings(ctx context.Context) ([]*audit.AuditorSettings, error) {
	var out []*audit.AuditorSettings
	for _, s := range m.Settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAuditRepository) SetAuditorDisabled(ctx context.Context, id int64, disabled bool) error {
	for _, s := range m.Settings {
		if s.ID == id {
			s.Disabled = disabled
			return nil
		}
	}
	return errors.NotFound("Auditor settings")
}

func (m *MockAuditRepository) Justify(ctx context.Context, id int64, user, justification string) error {
	issue, ok := m.Issues[id]
	if !ok {
		return errors.NotFound("Issue")
	}
	now := time.Now()
	issue.Justified = true
	issue.JustifiedUser = user
	issue.Justification = justification
	issue.JustifiedDate = &now
	return nil
}

func (m *MockAuditRepository) RemoveJustification(ctx context.Context, id int64) error {
	issue, ok := m.Issues[id]
	if !ok {
		return errors.NotFound("Issue")
	}
	issue.Justified = false
	issue.JustifiedUser = ""
	issue.Justification = ""
	issue.JustifiedDate = nil
	return nil
}

// MockEventRepository is an in-memory implementation of event.Repository.
type MockEventRepository struct {
	Events []*event.GuardDutyEvent
	NextID int64
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{NextID: 1}
}

func (m *MockEventRepository) Create(ctx context.Context, e *event.GuardDutyEvent) (int64, error) {
	e.ID = m.NextID
	e.DateCreated = time.Now()
	m.NextID++
	m.Events = append(m.Events, e)
	return e.ID, nil
}

func (m *MockEventRepository) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*event.GuardDutyEvent, int64, error) {
	var out []*event.GuardDutyEvent
	for _, e := range m.Events {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}

	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

// MockScannerRepository is an in-memory implementation of scanner.Repository.
type MockScannerRepository struct {
	Configs map[int64]*scanner.Config
	NextID  int64
}

func NewMockScannerRepository() *MockScannerRepository {
	return &MockScannerRepository{
		Configs: make(map[int64]*scanner.Config),
		NextID:  1,
	}
}

func (m *MockScannerRepository) Create(ctx context.Context, c *scanner.Config) (int64, error) {
	c.ID = m.NextID
	m.NextID++
	m.Configs[c.ID] = c
	return c.ID, nil
}

func (m *MockScannerRepository) GetByID(ctx context.Context, id int64) (*scanner.Config, error) {
	c, ok := m.Configs[id]
	if !ok {
		return nil, errors.NotFound("Scanner config")
	}
	return c, nil
}

func (m *MockScannerRepository) GetByName(ctx context.Context, name string) (*scanner.Config, error) {
	for _, c := range m.Configs {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, errors.NotFound("Scanner config")
}

func (m *MockScannerRepository) List(ctx context.Context) ([]*scanner.Config, error) {
	var out []*scanner.Config
	for _, c := range m.Configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockScannerRepository) Update(ctx context.Context, c *scanner.Config) error {
	if _, ok := m.Configs[c.ID]; !ok {
		return errors.NotFound("Scanner config")
	}
	m.Configs[c.ID] = c
	return nil
}

func (m *MockScannerRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.Configs[id]; !ok {
		return errors.NotFound("Scanner config")
	}
	delete(m.Configs, id)
	return nil
}
