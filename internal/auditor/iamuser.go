package auditor

import (
	"context"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// IAMUserAuditor alerts when the account root user has been used
// within the last 24 hours.
type IAMUserAuditor struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (a *IAMUserAuditor) Index() string { return "iamuser" }

func (a *IAMUserAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var user schema.IAMUser
	if err := schema.Decode(t.Config, &user); err != nil {
		return err
	}

	if !strings.HasSuffix(user.ARN, ":root") {
		return nil
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	oneDayAgo := now().Add(-24 * time.Hour)
	notes := "sa-iam-cis-1.1 - Root Account used in past 24hrs."

	lastUsed := user.PasswordLastUsed
	if lastUsed == nil {
		lastUsed = user.CreateDate
	}
	if lastUsed != nil && lastUsed.After(oneDayAgo) {
		res.Add(1, "Informational", notes)
		return nil
	}

	for _, key := range user.AccessKeys {
		used := key.LastUsedDate
		if used == nil {
			used = key.CreateDate
		}
		if used != nil && used.After(oneDayAgo) {
			res.Add(10, "Informational", notes)
			return nil
		}
	}
	return nil
}
