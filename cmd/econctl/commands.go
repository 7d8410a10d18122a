package main

import (
	"context"

	"chatbot-economy-api/internal/app"

	"github.com/spf13/cobra"
)

func newShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user_id>",
		Short: "Print an account, creating it with defaults if absent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Economy.GetAccount(ctx, args[0])
			})
		},
	}
}

func newJournalCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal <user_id>",
		Short: "Print the most recent journal entries of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Economy.Journal(ctx, args[0], opts.limit)
			})
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of entries")
	return cmd
}

func newSetExpCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-exp <user_id> <exp>",
		Short: "Set experience and recompute level and bank capacity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := parseInt(args[1], "exp")
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Economy.SetExp(ctx, opts.actor(), args[0], exp)
			})
		},
	}
}

func newSetMoneyCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-money <user_id> <money>",
		Short: "Overwrite the wallet balance of an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			money, err := parseInt(args[1], "money")
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Economy.SetMoney(ctx, opts.actor(), args[0], money)
			})
		},
	}
}

func newGrantCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <user_id> <item_id>",
		Short: "Give a catalog item to an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Economy.GrantItem(ctx, opts.actor(), args[0], args[1])
			})
		},
	}
}

func newSweepCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired inventory items now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.Sweeper.RunNow(ctx)
			})
		},
	}
}
