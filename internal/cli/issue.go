package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stackwatch/stackwatch/pkg/client"
)

func newIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Review and manage audit issues",
	}

	cmd.AddCommand(newIssueListCmd())
	cmd.AddCommand(newIssueGetCmd())
	cmd.AddCommand(newIssueJustifyCmd())
	cmd.AddCommand(newIssueUnjustifyCmd())
	cmd.AddCommand(newIssueIncidentCmd())

	return cmd
}

func newIssueListCmd() *cobra.Command {
	var technology, account string
	var minScore int
	var openOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			opts := &client.IssueListOptions{
				Technology: technology,
				Account:    account,
				MinScore:   minScore,
			}
			if openOnly {
				open := false
				opts.Fixed = &open
			}

			issues, total, err := apiClient.Issues().List(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list issues: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(issues)
			}

			t := NewTable("ID", "ITEM", "SCORE", "STATE", "ISSUE")
			for _, issue := range issues {
				t.AddRow(
					strconv.FormatInt(issue.ID, 10),
					strconv.FormatInt(issue.ItemID, 10),
					formatScore(issue.Score),
					formatIssueState(issue.Fixed, issue.Justified),
					truncate(issue.Issue, 60),
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d issues\n", len(issues), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&technology, "technology", "", "filter by technology")
	cmd.Flags().StringVar(&account, "account", "", "filter by account name")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum issue score")
	cmd.Flags().BoolVar(&openOnly, "open", false, "only unfixed issues")

	return cmd
}

func newIssueGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show issue details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue ID: %s", args[0])
			}

			ctx := context.Background()
			issue, err := apiClient.Issues().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get issue: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(issue)
			}

			fmt.Printf("ID:          %d\n", issue.ID)
			fmt.Printf("Item:        %d\n", issue.ItemID)
			fmt.Printf("Score:       %s\n", formatScore(issue.Score))
			fmt.Printf("State:       %s\n", formatIssueState(issue.Fixed, issue.Justified))
			fmt.Printf("Issue:       %s\n", issue.Issue)
			if issue.Notes != "" {
				fmt.Printf("Notes:       %s\n", issue.Notes)
			}
			if issue.Justified {
				fmt.Printf("Justified:   %s by %s\n", issue.Justification, issue.JustifiedUser)
			}
			fmt.Printf("Created:     %s\n", issue.DateCreated.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newIssueJustifyCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "justify <id> <justification>",
		Short: "Mark an issue as an accepted risk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue ID: %s", args[0])
			}

			ctx := context.Background()
			req := &client.JustifyRequest{
				Justification: args[1],
				User:          user,
			}
			if err := apiClient.Issues().Justify(ctx, id, req); err != nil {
				return fmt.Errorf("failed to justify issue: %w", err)
			}

			fmt.Printf("Issue %d justified\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "cli", "user recorded on the justification")

	return cmd
}

func newIssueUnjustifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unjustify <id>",
		Short: "Remove the justification from an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue ID: %s", args[0])
			}

			ctx := context.Background()
			if err := apiClient.Issues().RemoveJustification(ctx, id); err != nil {
				return fmt.Errorf("failed to remove justification: %w", err)
			}

			fmt.Printf("Justification removed from issue %d\n", id)
			return nil
		},
	}
}

func newIssueIncidentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incident <id>",
		Short: "Open a ticket for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid issue ID: %s", args[0])
			}

			ctx := context.Background()
			message, err := apiClient.Issues().OpenIncident(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to open incident: %w", err)
			}

			fmt.Println(message)
			return nil
		},
	}
}
