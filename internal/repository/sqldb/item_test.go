package sqldb_test

import (
	"context"
	"testing"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/repository/sqldb"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func seedAccount(t *testing.T, repo account.Repository) *account.Account {
	t.Helper()
	a := &account.Account{Name: "production", Identifier: "123456789012", Active: true}
	id, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	a.ID = id
	return a
}

func TestItemUpsert(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	repo := sqldb.NewItemRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, &item.Item{
		Technology: "securitygroup",
		Account:    "123456789012",
		Region:     "us-east-1",
		Name:       "web-sg",
		ARN:        "arn:aws:ec2:us-east-1:123456789012:security-group/sg-1",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if created.ID == 0 || created.Technology != "securitygroup" || created.Account != "production" {
		t.Errorf("item = %+v", created)
	}

	// Upserting the same scope returns the existing item.
	again, err := repo.Upsert(ctx, &item.Item{
		Technology: "securitygroup",
		Account:    "123456789012",
		Region:     "us-east-1",
		Name:       "web-sg",
	})
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("item id = %d, want %d", again.ID, created.ID)
	}

	// The account name works as the scope identifier too.
	byName, err := repo.Upsert(ctx, &item.Item{
		Technology: "securitygroup",
		Account:    "production",
		Region:     "us-east-1",
		Name:       "web-sg",
	})
	if err != nil {
		t.Fatalf("Upsert() by account name error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("item id = %d, want %d", byName.ID, created.ID)
	}
}

func TestItemUpsertUnknownAccount(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqldb.NewItemRepository(db)

	_, err := repo.Upsert(context.Background(), &item.Item{
		Technology: "securitygroup",
		Account:    "999999999999",
		Region:     "us-east-1",
		Name:       "web-sg",
	})
	if err == nil {
		t.Fatal("Upsert() expected error for an unknown account")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestItemRevisions(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	repo := sqldb.NewItemRepository(db)
	ctx := context.Background()

	it, err := repo.Upsert(ctx, &item.Item{
		Technology: "ec2instance",
		Account:    "123456789012",
		Region:     "us-east-1",
		Name:       "i-1",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if it.LatestRevisionID != 0 {
		t.Errorf("latest revision = %d, want 0 before any revision", it.LatestRevisionID)
	}

	first, err := repo.AddRevision(ctx, it.ID, []byte(`{"state":"running"}`), true)
	if err != nil {
		t.Fatalf("AddRevision() error = %v", err)
	}
	second, err := repo.AddRevision(ctx, it.ID, []byte(`{"state":"stopped"}`), true)
	if err != nil {
		t.Fatalf("second AddRevision() error = %v", err)
	}

	latest, err := repo.GetLatestRevision(ctx, it.ID)
	if err != nil {
		t.Fatalf("GetLatestRevision() error = %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest revision = %d, want %d", latest.ID, second.ID)
	}
	if string(latest.Config) != `{"state":"stopped"}` {
		t.Errorf("config = %s", latest.Config)
	}

	// Newest first.
	revs, total, err := repo.ListRevisions(ctx, it.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListRevisions() error = %v", err)
	}
	if total != 2 || len(revs) != 2 {
		t.Fatalf("revisions = %d (total %d), want 2", len(revs), total)
	}
	if revs[0].ID != second.ID || revs[1].ID != first.ID {
		t.Errorf("revision order = [%d, %d]", revs[0].ID, revs[1].ID)
	}

	// A new revision supersedes the previous one.
	if !revs[0].Active {
		t.Error("latest revision not active")
	}
	if revs[1].Active {
		t.Error("superseded revision still active")
	}
}

func TestItemTouchEphemeral(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	repo := sqldb.NewItemRepository(db)
	ctx := context.Background()

	it, err := repo.Upsert(ctx, &item.Item{
		Technology: "ec2instance", Account: "123456789012", Region: "us-east-1", Name: "i-1",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rev, err := repo.AddRevision(ctx, it.ID, []byte(`{}`), true)
	if err != nil {
		t.Fatalf("AddRevision() error = %v", err)
	}

	if err := repo.TouchEphemeral(ctx, rev.ID); err != nil {
		t.Fatalf("TouchEphemeral() error = %v", err)
	}
	latest, err := repo.GetLatestRevision(ctx, it.ID)
	if err != nil {
		t.Fatalf("GetLatestRevision() error = %v", err)
	}
	if latest.DateLastEphemeralChange == nil {
		t.Error("DateLastEphemeralChange not stamped")
	}

	if err := repo.TouchEphemeral(ctx, 9999); err == nil {
		t.Error("TouchEphemeral() expected error for an unknown revision")
	}
}

func TestItemDeactivate(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	repo := sqldb.NewItemRepository(db)
	ctx := context.Background()

	it, err := repo.Upsert(ctx, &item.Item{
		Technology: "ec2instance", Account: "123456789012", Region: "us-east-1", Name: "i-1",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := repo.AddRevision(ctx, it.ID, []byte(`{}`), true); err != nil {
		t.Fatalf("AddRevision() error = %v", err)
	}

	if err := repo.Deactivate(ctx, it.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	latest, err := repo.GetLatestRevision(ctx, it.ID)
	if err != nil {
		t.Fatalf("GetLatestRevision() error = %v", err)
	}
	if latest.Active {
		t.Error("revision still active after Deactivate")
	}

	active, err := repo.ListByTechnology(ctx, "ec2instance")
	if err != nil {
		t.Fatalf("ListByTechnology() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active items = %d, want 0", len(active))
	}
}

func TestItemList(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	repo := sqldb.NewItemRepository(db)
	ctx := context.Background()

	seed := []struct {
		technology, region, name string
		active                   bool
	}{
		{"securitygroup", "us-east-1", "web-sg", true},
		{"securitygroup", "eu-west-1", "db-sg", true},
		{"ec2instance", "us-east-1", "i-1", false},
	}
	for _, s := range seed {
		it, err := repo.Upsert(ctx, &item.Item{
			Technology: s.technology, Account: "123456789012", Region: s.region, Name: s.name,
		})
		if err != nil {
			t.Fatalf("Upsert(%s) error = %v", s.name, err)
		}
		if _, err := repo.AddRevision(ctx, it.ID, []byte(`{}`), s.active); err != nil {
			t.Fatalf("AddRevision(%s) error = %v", s.name, err)
		}
	}

	all, total, err := repo.List(ctx, item.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("items = %d (total %d), want 3", len(all), total)
	}

	byTech, total, err := repo.List(ctx, item.Filter{Technology: "securitygroup"}, 10, 0)
	if err != nil {
		t.Fatalf("List(technology) error = %v", err)
	}
	if total != 2 || len(byTech) != 2 {
		t.Errorf("securitygroup items = %d, want 2", len(byTech))
	}

	byRegion, _, err := repo.List(ctx, item.Filter{Region: "eu-west-1"}, 10, 0)
	if err != nil {
		t.Fatalf("List(region) error = %v", err)
	}
	if len(byRegion) != 1 || byRegion[0].Name != "db-sg" {
		t.Errorf("eu-west-1 items = %+v", byRegion)
	}

	active := true
	onlyActive, total, err := repo.List(ctx, item.Filter{Active: &active}, 10, 0)
	if err != nil {
		t.Fatalf("List(active) error = %v", err)
	}
	if total != 2 || len(onlyActive) != 2 {
		t.Errorf("active items = %d, want 2", len(onlyActive))
	}

	// Pagination.
	page, total, err := repo.List(ctx, item.Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("List(paged) error = %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("page = %d items (total %d), want 1 of 3", len(page), total)
	}
}

func TestItemGetByIDNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqldb.NewItemRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	if err == nil {
		t.Fatal("GetByID() expected error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Errorf("error = %v, want not found", err)
	}
}
