package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackwatch/stackwatch/pkg/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show platform summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			format := getOutputFormat()
			if format != "table" {
				summary := map[string]interface{}{}

				accounts, err := apiClient.Accounts().List(ctx, true)
				if err == nil {
					summary["accounts"] = len(accounts)
				}
				_, totalItems, err := apiClient.Items().List(ctx, &client.ItemListOptions{ListOptions: client.ListOptions{Count: 1}})
				if err == nil {
					summary["items"] = totalItems
				}
				open := false
				_, totalIssues, err := apiClient.Issues().List(ctx, &client.IssueListOptions{
					ListOptions: client.ListOptions{Count: 1},
					Fixed:       &open,
				})
				if err == nil {
					summary["open_issues"] = totalIssues
				}
				return printOutput(summary)
			}

			fmt.Println("StackWatch Dashboard")
			fmt.Println(strings.Repeat("=", 40))

			// Accounts
			accounts, err := apiClient.Accounts().List(ctx, true)
			if err != nil {
				fmt.Printf("  Accounts:      (error: %v)\n", err)
			} else {
				fmt.Printf("  Accounts:      %d watched\n", len(accounts))
			}

			// Items
			_, totalItems, err := apiClient.Items().List(ctx, &client.ItemListOptions{ListOptions: client.ListOptions{Count: 1}})
			if err != nil {
				fmt.Printf("  Items:         (error: %v)\n", err)
			} else {
				fmt.Printf("  Items:         %d tracked\n", totalItems)
			}

			// Open issues
			open := false
			_, totalIssues, err := apiClient.Issues().List(ctx, &client.IssueListOptions{
				ListOptions: client.ListOptions{Count: 1},
				Fixed:       &open,
			})
			if err != nil {
				fmt.Printf("  Open issues:   (error: %v)\n", err)
			} else {
				fmt.Printf("  Open issues:   %d", totalIssues)
				severities, err := apiClient.Reports().VulnerabilitiesBySeverity(ctx)
				if err == nil {
					for _, s := range severities {
						if s.Severity == "high" && s.Count > 0 {
							fmt.Printf(" (%d high severity)", s.Count)
						}
					}
				}
				fmt.Println()
			}

			return nil
		},
	}
}
