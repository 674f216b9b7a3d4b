package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CachoMX/vhlabs/internal/services"
)

type createUserFlags struct {
	email    string
	password string
	role     string
}

func (a *app) createUserCmd() *cobra.Command {
	var f createUserFlags
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a dashboard user in Supabase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCreateUser(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.email, "email", "", "user email (required)")
	cmd.Flags().StringVar(&f.password, "password", "", "initial password (required)")
	cmd.Flags().StringVar(&f.role, "role", "admin", "role stored in the user metadata")
	return cmd
}

func (a *app) runCreateUser(cmd *cobra.Command, f createUserFlags) error {
	if f.email == "" || f.password == "" {
		return errors.New("--email and --password are required")
	}
	p, err := a.newProvider(a.cfg.Supabase, a.log)
	if err != nil {
		return err
	}
	svc := &services.AuthService{Provider: p}
	u, err := svc.SignUp(cmd.Context(), f.email, f.password, f.role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	a.log.Info().Str("user_id", u.ID).Str("role", f.role).Msg("user created")
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.ID, u.Email)
	return nil
}
