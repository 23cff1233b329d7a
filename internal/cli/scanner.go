package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stackwatch/stackwatch/pkg/client"
)

func newScannerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanner",
		Short: "Manage container scan engines",
	}

	cmd.AddCommand(newScannerListCmd())
	cmd.AddCommand(newScannerAddCmd())
	cmd.AddCommand(newScannerRemoveCmd())

	return cmd
}

func newScannerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured scan engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			configs, err := apiClient.Scanners().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list scan engines: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(configs)
			}

			t := NewTable("ID", "NAME", "URL", "SSL VERIFY")
			for _, c := range configs {
				t.AddRow(
					strconv.FormatInt(c.ID, 10),
					c.Name,
					c.URL,
					strconv.FormatBool(c.SSLVerify),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newScannerAddCmd() *cobra.Command {
	var username, password string
	var sslVerify bool

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a scan engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := apiClient.Scanners().Create(ctx, &client.ScannerConfigRequest{
				Name:      args[0],
				URL:       args[1],
				Username:  username,
				Password:  password,
				SSLVerify: sslVerify,
			})
			if err != nil {
				return fmt.Errorf("failed to register scan engine: %w", err)
			}

			fmt.Printf("Scan engine %s registered with ID %d\n", args[0], id)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "scan engine username")
	cmd.Flags().StringVar(&password, "password", "", "scan engine password")
	cmd.Flags().BoolVar(&sslVerify, "ssl-verify", true, "verify the scan engine TLS certificate")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newScannerRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a scan engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid scan engine ID: %s", args[0])
			}

			ctx := context.Background()
			if err := apiClient.Scanners().Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to remove scan engine: %w", err)
			}

			fmt.Printf("Scan engine %d removed\n", id)
			return nil
		},
	}
}
