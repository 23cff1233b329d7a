package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stackwatch/stackwatch/pkg/client"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Vulnerability feed and charts",
	}

	cmd.AddCommand(newReportFeedCmd())
	cmd.AddCommand(newReportChartsCmd())
	cmd.AddCommand(newReportPoamCmd())

	return cmd
}

func newReportFeedCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the reportable issue feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			items, err := apiClient.Reports().Feed(ctx, &client.ListOptions{Count: count})
			if err != nil {
				return fmt.Errorf("failed to fetch feed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(items)
			}

			t := NewTable("ITEM", "TECHNOLOGY", "ACCOUNT", "REGION", "SCORE", "ISSUE")
			for _, fi := range items {
				t.AddRow(
					strconv.FormatInt(fi.ItemID, 10),
					fi.Technology,
					fi.Account,
					fi.Region,
					formatScore(fi.Score),
					truncate(fi.Issue, 55),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 25, "number of feed entries")

	return cmd
}

func newReportPoamCmd() *cobra.Command {
	var accounts []string

	cmd := &cobra.Command{
		Use:   "poam",
		Short: "Show open issues as plan-of-action rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			rows, err := apiClient.Reports().Poam(ctx, accounts)
			if err != nil {
				return fmt.Errorf("failed to fetch poam summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(rows)
			}

			t := NewTable("POAM ID", "CONTROL", "SCORE", "WEAKNESS", "DESCRIPTION")
			for _, row := range rows {
				t.AddRow(
					row.PoamID,
					row.Control,
					formatScore(row.Score),
					truncate(row.WeaknessName, 35),
					truncate(row.WeaknessDescription, 45),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&accounts, "accounts", nil, "filter by account names")

	return cmd
}

func newReportChartsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charts",
		Short: "Show open issue counts by technology and severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			byTech, err := apiClient.Reports().VulnerabilitiesByTechnology(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch technology chart: %w", err)
			}
			bySeverity, err := apiClient.Reports().VulnerabilitiesBySeverity(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch severity chart: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(map[string]interface{}{
					"by_technology": byTech,
					"by_severity":   bySeverity,
				})
			}

			t := NewTable("TECHNOLOGY", "COUNT", "PERCENTAGE")
			for _, row := range byTech {
				t.AddRow(row.Technology, strconv.FormatInt(row.Count, 10), fmt.Sprintf("%.1f%%", row.Percentage))
			}
			t.Render()

			fmt.Println()
			s := NewTable("SEVERITY", "COUNT")
			for _, row := range bySeverity {
				s.AddRow(row.Severity, strconv.FormatInt(row.Count, 10))
			}
			s.Render()
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	var technology string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a slurp and audit cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summaries, err := apiClient.Reports().Scan(ctx, technology)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(summaries)
			}

			t := NewTable("TECHNOLOGY", "ITEMS", "CREATED", "CHANGED", "DEACTIVATED", "NEW ISSUES", "FIXED")
			for _, s := range summaries {
				newIssues, fixed := "-", "-"
				if s.Audit != nil {
					newIssues = strconv.Itoa(s.Audit.Created)
					fixed = strconv.Itoa(s.Audit.Fixed)
				}
				t.AddRow(
					s.Technology,
					strconv.Itoa(s.Items),
					strconv.Itoa(s.Created),
					strconv.Itoa(s.Changed),
					strconv.Itoa(s.Deactivated),
					newIssues,
					fixed,
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&technology, "technology", "", "scan a single technology")

	return cmd
}
