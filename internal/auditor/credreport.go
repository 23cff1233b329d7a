package auditor

import (
	"context"
	"fmt"
	"time"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// CredReportAuditor checks credential report rows for root account
// usage, stale credentials, root access keys and missing root MFA.
type CredReportAuditor struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (a *CredReportAuditor) Index() string { return "credreport" }

func (a *CredReportAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var row schema.CredReportRow
	if err := schema.Decode(t.Config, &row); err != nil {
		return err
	}

	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}

	a.checkRootUsage(row, now, res)
	a.checkUnusedCredentials(row, now, res)
	a.checkRootAccessKeys(row, res)
	a.checkRootMFA(row, res)
	return nil
}

// Root sign-ins or root key usage within the last day.
func (a *CredReportAuditor) checkRootUsage(row schema.CredReportRow, now time.Time, res *Result) {
	if !row.IsRoot() {
		return
	}
	notes := "sa-iam-cis-1.1 - Root Account used in past 24hrs."

	for _, col := range []string{row.PasswordLastUsed, row.AccessKey1LastUsedDate, row.AccessKey2LastUsedDate} {
		if now.Sub(schema.CredReportDate(col)) < 24*time.Hour {
			res.Add(1, "Informational", notes)
			return
		}
	}
}

// Active credentials unused for more than 90 days.
func (a *CredReportAuditor) checkUnusedCredentials(row schema.CredReportRow, now time.Time, res *Result) {
	const staleAfter = 90 * 24 * time.Hour
	notes := "sa-iam-cis-1.3 - Detected active %s unused for over 90 days."

	if schema.CredReportBool(row.PasswordEnabled) &&
		now.Sub(schema.CredReportDate(row.PasswordLastUsed)) > staleAfter {
		res.Add(10, "Informational", fmt.Sprintf(notes, "password"))
	}
	if schema.CredReportBool(row.AccessKey1Active) &&
		now.Sub(schema.CredReportDate(row.AccessKey1LastUsedDate)) > staleAfter {
		res.Add(10, "Informational", fmt.Sprintf(notes, "access key 1"))
	}
	if schema.CredReportBool(row.AccessKey2Active) &&
		now.Sub(schema.CredReportDate(row.AccessKey2LastUsedDate)) > staleAfter {
		res.Add(10, "Informational", fmt.Sprintf(notes, "access key 2"))
	}
}

func (a *CredReportAuditor) checkRootAccessKeys(row schema.CredReportRow, res *Result) {
	if !row.IsRoot() {
		return
	}
	if schema.CredReportBool(row.AccessKey1Active) || schema.CredReportBool(row.AccessKey2Active) {
		res.Add(10, "Informational", "sa-iam-cis-1.12 - Root account has active access keys.")
	}
}

func (a *CredReportAuditor) checkRootMFA(row schema.CredReportRow, res *Result) {
	if !row.IsRoot() {
		return
	}
	if !schema.CredReportBool(row.MFAActive) {
		res.Add(10, "Informational", "sa-iam-cis-1.13 - Root account does not have MFA enabled.")
	}
}
