package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stackwatch/stackwatch/pkg/client"
)

func newItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Browse tracked configuration items",
	}

	cmd.AddCommand(newItemListCmd())
	cmd.AddCommand(newItemGetCmd())
	cmd.AddCommand(newItemRevisionsCmd())

	return cmd
}

func newItemListCmd() *cobra.Command {
	var technology, account, region, name string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			opts := &client.ItemListOptions{
				Technology: technology,
				Account:    account,
				Region:     region,
				Name:       name,
			}
			if activeOnly {
				opts.Active = &activeOnly
			}

			items, total, err := apiClient.Items().List(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(items)
			}

			t := NewTable("ID", "TECHNOLOGY", "ACCOUNT", "REGION", "NAME")
			for _, it := range items {
				t.AddRow(
					strconv.FormatInt(it.ID, 10),
					it.Technology,
					it.Account,
					it.Region,
					truncate(it.Name, 50),
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d items\n", len(items), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&technology, "technology", "", "filter by technology")
	cmd.Flags().StringVar(&account, "account", "", "filter by account name")
	cmd.Flags().StringVar(&region, "region", "", "filter by region")
	cmd.Flags().StringVar(&name, "name", "", "filter by item name")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active items")

	return cmd
}

func newItemGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an item with its latest configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item ID: %s", args[0])
			}

			ctx := context.Background()
			detail, err := apiClient.Items().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get item: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(detail)
			}

			fmt.Printf("ID:          %d\n", detail.Item.ID)
			fmt.Printf("Technology:  %s\n", detail.Item.Technology)
			fmt.Printf("Account:     %s\n", detail.Item.Account)
			fmt.Printf("Region:      %s\n", detail.Item.Region)
			fmt.Printf("Name:        %s\n", detail.Item.Name)
			if detail.Item.ARN != "" {
				fmt.Printf("ARN:         %s\n", detail.Item.ARN)
			}
			fmt.Printf("Status:      %s\n", formatActive(detail.Revision.Active))
			fmt.Printf("Captured:    %s\n", detail.Revision.DateCreated.Format("2006-01-02 15:04:05"))
			fmt.Printf("Config:\n%s\n", string(detail.Revision.Config))
			return nil
		},
	}
}

func newItemRevisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <id>",
		Short: "Show the revision history of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item ID: %s", args[0])
			}

			ctx := context.Background()
			revisions, total, err := apiClient.Items().Revisions(ctx, id, nil)
			if err != nil {
				return fmt.Errorf("failed to list revisions: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(revisions)
			}

			t := NewTable("ID", "STATUS", "CAPTURED", "LAST EPHEMERAL CHANGE")
			for _, rev := range revisions {
				ephemeral := "-"
				if rev.DateLastEphemeralChange != nil {
					ephemeral = rev.DateLastEphemeralChange.Format("2006-01-02 15:04:05")
				}
				t.AddRow(
					strconv.FormatInt(rev.ID, 10),
					formatActive(rev.Active),
					rev.DateCreated.Format("2006-01-02 15:04:05"),
					ephemeral,
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d revisions\n", len(revisions), total)
			return nil
		},
	}
}
