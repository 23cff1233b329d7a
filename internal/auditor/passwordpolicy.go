package auditor

import (
	"context"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// PasswordPolicyAuditor checks the account password policy against the
// CIS 1.5 through 1.11 benchmarks. An absent policy fails every check.
type PasswordPolicyAuditor struct{}

func (a *PasswordPolicyAuditor) Index() string { return "passwordpolicy" }

func (a *PasswordPolicyAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var policy schema.PasswordPolicy
	if err := schema.Decode(t.Config, &policy); err != nil {
		return err
	}

	missing := policy.IsZero()

	check := func(rule string, failed bool, notes string) {
		if missing {
			res.Add(10, "Informational", rule+"Account has no password policy.")
			return
		}
		if failed {
			res.Add(10, "Informational", rule+notes)
		}
	}

	check("sa-iam-cis-1.5 - ", !policy.RequireUppercaseCharacters,
		"Password Policy should require uppercase letters.")
	check("sa-iam-cis-1.6 - ", !policy.RequireLowercaseCharacters,
		"Password Policy should require lowercase letters.")
	check("sa-iam-cis-1.7 - ", !policy.RequireSymbols,
		"Password Policy should require a symbol.")
	check("sa-iam-cis-1.8 - ", !policy.RequireNumbers,
		"Password Policy should require a number.")
	check("sa-iam-cis-1.9 - ", policy.MinimumPasswordLength < 14,
		"Password Policy should require at least 14 characters.")
	check("sa-iam-cis-1.10 - ", policy.PasswordReusePrevention != 24,
		"Password Policy should prevent password reuse.")
	check("sa-iam-cis-1.11 - ", !policy.ExpirePasswords || policy.MaxPasswordAge > 90,
		"Password Policy should expire passwords within 90 days.")
	return nil
}
