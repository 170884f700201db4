package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/auth"
	"fintrack/internal/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", a.cfg.DataBackend)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset",
		Long:  "Creates the demo and alice accounts with sample expenses, categories, budgets and recurring templates. Does nothing when the demo user exists.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := storage.SeedDemo(cmd.Context(), store, auth.HashPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Demo data ready")
			return nil
		},
	}
}

func newUserCmd(a *app) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var password, email string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			// Signup does not use the token manager.
			u, err := auth.NewService(store, nil, nil).Signup(cmd.Context(), args[0], password, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&password, "password", "", "Account password")
	add.Flags().StringVar(&email, "email", "", "Optional email address")
	_ = add.MarkFlagRequired("password")

	userCmd.AddCommand(add)
	return userCmd
}
