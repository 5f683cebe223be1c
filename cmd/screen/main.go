package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"quickfi/internal/app"
	"quickfi/internal/platform/config"
	"quickfi/internal/platform/logger"
	"quickfi/internal/screening/models"
	id "quickfi/pkg/domain"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "screen",
	Short: "Vendor risk screening CLI",
	Long: `screen runs vendor verification stages and manages the resulting flags.
Configuration is read from QUICKFI_* environment variables; the flags below override them.
Without a database URL the CLI uses an in-memory store, which only makes sense with --demo.`,
	SilenceUsage: true,
}

func main() {
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("database-url", "", "postgres connection URL")
	rootCmd.PersistentFlags().String("redis-url", "", "redis URL for the registry cache")
	rootCmd.PersistentFlags().String("state-links", "", "YAML file mapping states to registry search URLs")
	_ = v.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = v.BindPFlag("server.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = v.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis-url"))
	_ = v.BindPFlag("statelink.file", rootCmd.PersistentFlags().Lookup("state-links"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(flagsCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(dueDiligenceCmd())
	rootCmd.AddCommand(stagesCmd())
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load(v)
	log := logger.NewWithWriter(os.Stderr, cfg.Server.LogLevel)
	a, err := app.Build(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(ctx, a)
}

func runCmd() *cobra.Command {
	var (
		accountID string
		stages    []string
		demo      bool
	)
	cmd := &cobra.Command{
		Use:   "run [vendor-id]",
		Short: "Run screening stages for a vendor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if demo {
				v.Set("server.seed_demo", true)
			}
			selected, err := models.ParseStages(stages)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				vendorID, account, err := runTarget(a, args, accountID, demo)
				if err != nil {
					return err
				}
				report, err := a.Service.Screen(ctx, vendorID, account, selected)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(os.Stdout, report)
				}
				printRunReport(os.Stdout, report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "account compared by the identity stage")
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "stages to run (default all configured)")
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo records and screen the first demo vendor")
	return cmd
}

func runTarget(a *app.App, args []string, accountID string, demo bool) (id.VendorID, *id.AccountID, error) {
	if demo {
		if a.Demo == nil {
			return id.VendorID{}, nil, fmt.Errorf("--demo requires the in-memory store (unset the database URL)")
		}
		account := a.Demo.Accounts[0]
		return a.Demo.Vendors[0], &account, nil
	}
	if len(args) == 0 {
		return id.VendorID{}, nil, fmt.Errorf("vendor id is required")
	}
	vendorID, err := id.ParseVendorID(args[0])
	if err != nil {
		return id.VendorID{}, nil, err
	}
	if accountID == "" {
		return vendorID, nil, nil
	}
	account, err := id.ParseAccountID(accountID)
	if err != nil {
		return id.VendorID{}, nil, err
	}
	return vendorID, &account, nil
}

func flagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flags <vendor-id>",
		Short: "Show accumulated flags for a vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vendorID, err := id.ParseVendorID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				summary, err := a.Service.Flags(ctx, vendorID)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(os.Stdout, summary)
				}
				printFlags(os.Stdout, summary)
				return nil
			})
		},
	}
}

func notifyCmd() *cobra.Command {
	var recipient string
	cmd := &cobra.Command{
		Use:   "notify <vendor-id>",
		Short: "Send the vendor's flag summary to the configured channels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vendorID, err := id.ParseVendorID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Service.Notify(ctx, vendorID, recipient)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(os.Stdout, result)
				}
				fmt.Fprintln(os.Stdout, result.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "email recipient (default from QUICKFI_SMTP_RECIPIENT)")
	return cmd
}

func dueDiligenceCmd() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "due-diligence <vendor-id>",
		Short: "Show the account and vendor side by side for manual review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vendorID, err := id.ParseVendorID(args[0])
			if err != nil {
				return err
			}
			account, err := id.ParseAccountID(accountID)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				view, err := a.Service.DueDiligence(ctx, account, vendorID)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return printJSON(os.Stdout, view)
				}
				printDueDiligence(os.Stdout, view)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "account id")
	_ = cmd.MarkFlagRequired("account-id")
	return cmd
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stages enabled by the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(_ context.Context, a *app.App) error {
				for _, s := range a.Runner.Stages() {
					fmt.Fprintln(os.Stdout, s)
				}
				return nil
			})
		},
	}
}
