package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"chatbot-economy-api/internal/app"
	"chatbot-economy-api/internal/config"
	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/service"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	storeType string
	storePath string
	actorID   string
	limit     int
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "econctl",
		Short:         "Inspect and adjust economy accounts",
		Long:          "econctl opens the account store named by the environment (STORE_TYPE, STORE_PATH, ...) and runs a single admin operation against it.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.storeType, "store-type", "", "override STORE_TYPE")
	flags.StringVar(&opts.storePath, "store-path", "", "override STORE_PATH")
	flags.StringVar(&opts.actorID, "actor", "econctl", "admin id recorded for privileged changes")

	rootCmd.AddCommand(
		newShowCmd(opts),
		newJournalCmd(opts),
		newSetExpCmd(opts),
		newSetMoneyCmd(opts),
		newGrantCmd(opts),
		newSweepCmd(opts),
	)

	return rootCmd
}

// run opens the store, calls fn and prints its result as JSON.
func (o *cliOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (interface{}, error)) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.storeType != "" {
		cfg.Store.Type = o.storeType
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}
	// The CLI is a one-shot process; Redis-backed queues are left to the server.
	cfg.Pending.Type = "memory"
	cfg.Journal.Buffer = "none"

	logging.Setup("warn", "text", false)

	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()

	result, err := fn(cmd.Context(), a)
	if err != nil {
		return err
	}
	return writeJSON(cmd, result)
}

func (o *cliOptions) actor() service.Actor {
	return service.Actor{ID: o.actorID, Admin: true}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseInt(arg, name string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, arg)
	}
	return n, nil
}
