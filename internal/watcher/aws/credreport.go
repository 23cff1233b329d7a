package aws

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// Report generation is asynchronous on the AWS side. The slurp asks for
// a fresh report and polls until it is ready.
const (
	credReportAttempts = 10
	credReportDelay    = 3 * time.Second
)

// CredReportWatcher slurps the IAM credential report, one item per row.
type CredReportWatcher struct {
	base
}

func NewCredReportWatcher(factory *ClientFactory, accounts []*account.Account, log *logger.Logger) *CredReportWatcher {
	return &CredReportWatcher{base: newBase(factory, accounts, nil, log)}
}

func (w *CredReportWatcher) Index() string { return "credreport" }

func (w *CredReportWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachAccount(w.Index(), exc, func(acct *account.Account) error {
		client := iam.NewFromConfig(w.factory.ConfigFor(acct.Identifier, ""))

		content, err := fetchCredReport(ctx, client)
		if err != nil {
			return err
		}

		rows, err := parseCredReport(content)
		if err != nil {
			return err
		}

		for _, row := range rows {
			items = append(items, watcher.ChangeItem{
				Index:   w.Index(),
				Account: acct.Identifier,
				Region:  item.RegionUniversal,
				Name:    row.User,
				ARN:     row.ARN,
				Config:  row,
			})
		}
		return nil
	})

	return items, exc, nil
}

func fetchCredReport(ctx context.Context, client *iam.Client) ([]byte, error) {
	if _, err := client.GenerateCredentialReport(ctx, &iam.GenerateCredentialReportInput{}); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < credReportAttempts; attempt++ {
		out, err := client.GetCredentialReport(ctx, &iam.GetCredentialReportInput{})
		if err == nil {
			return out.Content, nil
		}

		var inProgress *iamtypes.CredentialReportNotReadyException
		var notPresent *iamtypes.CredentialReportNotPresentException
		if !stderrors.As(err, &inProgress) && !stderrors.As(err, &notPresent) {
			return nil, err
		}

		select {
		case <-time.After(credReportDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("credential report not ready after %d attempts", credReportAttempts)
}

// parseCredReport maps the CSV report by header so column order changes
// do not break the slurp.
func parseCredReport(content []byte) ([]schema.CredReportRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read credential report header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []schema.CredReportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read credential report row: %w", err)
		}

		rows = append(rows, schema.CredReportRow{
			User:                   field(record, "user"),
			ARN:                    field(record, "arn"),
			UserCreationTime:       field(record, "user_creation_time"),
			PasswordEnabled:        field(record, "password_enabled"),
			PasswordLastUsed:       field(record, "password_last_used"),
			PasswordLastChanged:    field(record, "password_last_changed"),
			MFAActive:              field(record, "mfa_active"),
			AccessKey1Active:       field(record, "access_key_1_active"),
			AccessKey1LastRotated:  field(record, "access_key_1_last_rotated"),
			AccessKey1LastUsedDate: field(record, "access_key_1_last_used_date"),
			AccessKey2Active:       field(record, "access_key_2_active"),
			AccessKey2LastRotated:  field(record, "access_key_2_last_rotated"),
			AccessKey2LastUsedDate: field(record, "access_key_2_last_used_date"),
		})
	}

	return rows, nil
}
