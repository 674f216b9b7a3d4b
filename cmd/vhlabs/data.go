package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/seed"
	"github.com/CachoMX/vhlabs/internal/services"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and views",
		Args:  cobra.NoArgs,
		RunE:  a.runMigrate,
	}
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := repo.Open(a.cfg.DB, repo.Options{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.Migrate(db.WithContext(cmd.Context())); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables (%s)\n", len(repo.Models()), a.cfg.DB.Driver)
	return nil
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load lookup tables, the starter prompt library and sample data",
		Long: "Upserts segments, investor statuses and the starter prompts, then inserts " +
			"sample contacts, content, distributions and analytics once.",
		Args: cobra.NoArgs,
		RunE: a.runSeed,
	}
}

func (a *app) runSeed(cmd *cobra.Command, _ []string) error {
	db, closeDB, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	out := cmd.OutOrStdout()
	res, err := seed.Run(cmd.Context(), db, time.Now().UTC())
	switch {
	case errors.Is(err, seed.ErrAlreadySeeded):
		a.log.Warn().Msg("sample data already present; only lookups and prompts were refreshed")
		fmt.Fprintln(out, "sample data already present")
	case err != nil:
		return fmt.Errorf("seed: %w", err)
	default:
		fmt.Fprintf(out, "inserted %d contacts, %d contents, %d hooks, %d distributions, %d events, %d workflow logs\n",
			res.Contacts, res.Contents, res.Hooks, res.Distributions, res.Events, res.WorkflowLogs)
	}
	printImportSummary(out, res.Prompts)
	return nil
}

func (a *app) importPromptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-prompts <file.yaml|->",
		Short: "Import a YAML prompt library",
		Long: "Each entry becomes version 1 of a new family, a new version of an existing " +
			"family when its content changed, or is skipped when unchanged.",
		Args: cobra.ExactArgs(1),
		RunE: a.runImportPrompts,
	}
}

func (a *app) runImportPrompts(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	prompts, err := seed.ParseLibrary(r)
	if err != nil {
		return err
	}

	db, closeDB, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	sum, err := seed.ImportPrompts(cmd.Context(), &services.PromptService{DB: db}, prompts)
	printImportSummary(cmd.OutOrStdout(), sum)
	return err
}

func printImportSummary(w io.Writer, s seed.ImportSummary) {
	fmt.Fprintf(w, "prompts: %d created, %d versioned, %d unchanged\n", s.Created, s.Versioned, s.Unchanged)
}

func (a *app) checkDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-data",
		Short: "Print row counts per table",
		Args:  cobra.NoArgs,
		RunE:  a.runCheckData,
	}
}

func (a *app) runCheckData(cmd *cobra.Command, _ []string) error {
	db, closeDB, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	counts, err := repo.TableCounts(cmd.Context(), db)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Table, c.Rows)
	}
	return tw.Flush()
}
