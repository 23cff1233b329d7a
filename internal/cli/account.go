package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Browse watched accounts",
	}

	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountGetCmd())

	return cmd
}

func newAccountListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watched accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			accounts, err := apiClient.Accounts().List(ctx, activeOnly)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(accounts)
			}

			t := NewTable("ID", "NAME", "IDENTIFIER", "STATUS", "THIRD PARTY")
			for _, a := range accounts {
				t.AddRow(
					strconv.FormatInt(a.ID, 10),
					a.Name,
					a.Identifier,
					formatActive(a.Active),
					strconv.FormatBool(a.ThirdParty),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active accounts")

	return cmd
}

func newAccountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show account details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account ID: %s", args[0])
			}

			ctx := context.Background()
			acct, err := apiClient.Accounts().Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get account: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(acct)
			}

			fmt.Printf("ID:          %d\n", acct.ID)
			fmt.Printf("Name:        %s\n", acct.Name)
			fmt.Printf("Identifier:  %s\n", acct.Identifier)
			fmt.Printf("Status:      %s\n", formatActive(acct.Active))
			fmt.Printf("Third party: %t\n", acct.ThirdParty)
			if acct.Notes != "" {
				fmt.Printf("Notes:       %s\n", acct.Notes)
			}
			return nil
		},
	}
}
