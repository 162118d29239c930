package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vspok/wabottle/internal/auth"
	"github.com/vspok/wabottle/internal/bottle"
	"github.com/vspok/wabottle/internal/infra/config"
	"github.com/vspok/wabottle/internal/infra/logger"
)

var version = "dev"

type rootFlags struct {
	configPath string
	dbPath     string
	session    string
	logLevel   string
}

func execute(args []string) error {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:           "wabottle",
		Short:         "Inspect the local messaging session replica",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("wabottle {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file")
	pf.StringVar(&flags.dbPath, "db", "", "path to the store database")
	pf.StringVar(&flags.session, "session", "", "session name")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(newChatsCmd(&flags))
	rootCmd.AddCommand(newMessagesCmd(&flags))
	rootCmd.AddCommand(newContactsCmd(&flags))
	rootCmd.AddCommand(newGroupsCmd(&flags))
	rootCmd.AddCommand(newSessionCmd(&flags))

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

func resolveConfig(flags *rootFlags) *config.Config {
	cfg := config.Load(flags.configPath)
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.session != "" {
		cfg.Session = flags.session
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg
}

func openHandles(ctx context.Context, flags *rootFlags) (*bottle.Bottle, *bottle.Handles, error) {
	cfg := resolveConfig(flags)
	log := logger.New("wabottle", cfg.LogLevel)

	b, err := bottle.Init(cfg.DBPath, log)
	if err != nil {
		return nil, nil, err
	}
	handles, err := b.CreateStore(ctx, cfg.Session, cfg.StoreOptions(), &auth.Options{CredsFile: cfg.CredsFile})
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return b, handles, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
