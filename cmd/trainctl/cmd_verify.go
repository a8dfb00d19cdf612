package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/database"
	"trainingops/internal/models"
	"trainingops/internal/services"
)

func newVerifyCmd(a *cli) *cobra.Command {
	var (
		table   string
		columns []string
		direct  bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a table carries the required columns",
		Long: `Sample one row of the table and report the required columns it lacks.
An empty table cannot be checked this way and is reported as "no data";
--direct reads the declared schema over DATABASE_URL instead, which also
works on empty tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			required := columns
			if len(required) == 0 {
				required = models.RequiredTrainingColumns
			}

			var (
				report models.ColumnReport
				err    error
			)
			if direct {
				if a.cfg.DatabaseURL == "" {
					return &config.Error{Missing: []string{"DATABASE_URL"}, Err: config.ErrMissingCredentials}
				}
				db, dbErr := database.New(a.cfg.DatabaseURL)
				if dbErr != nil {
					return dbErr
				}
				defer db.Close()
				report, err = services.NewVerifyService(nil).SchemaColumns(cmd.Context(), db, table, required)
			} else {
				client, cErr := a.backend(config.AnonRole)
				if cErr != nil {
					return cErr
				}
				report, err = services.NewVerifyService(client).Columns(cmd.Context(), table, required)
			}
			if err != nil {
				return err
			}

			switch {
			case report.NoData:
				fmt.Fprintf(a.out, "⚠️  %s has no data: cannot verify columns from a sample row\n", table)
				return nil
			case len(report.Missing) > 0:
				fmt.Fprintf(a.out, "❌ %s is missing %d columns: %s\n", table, len(report.Missing), strings.Join(report.Missing, ", "))
			default:
				fmt.Fprintf(a.out, "✅ %s has all %d required columns\n", table, len(report.Present))
			}
			if len(report.Extra) > 0 {
				fmt.Fprintf(a.out, "   extra columns: %s\n", strings.Join(report.Extra, ", "))
			}
			if !report.OK() {
				return fmt.Errorf("%s: %d required columns missing", table, len(report.Missing))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", models.TableTrainingData, "table to verify")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "required columns (default: the training_data column set)")
	cmd.Flags().BoolVar(&direct, "direct", false, "read the schema over DATABASE_URL instead of sampling a row")
	return cmd
}

func newTablesCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tables [name...]",
		Short: "Report which pipeline tables exist and their row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = models.KnownTables
			}
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}

			failed := 0
			for _, s := range services.NewVerifyService(client).Tables(cmd.Context(), names) {
				switch {
				case s.Error != "":
					failed++
					fmt.Fprintf(a.out, "⚠️  %-28s %s\n", s.Name, s.Error)
				case s.Exists:
					fmt.Fprintf(a.out, "✅ %-28s %d rows\n", s.Name, s.Rows)
				default:
					fmt.Fprintf(a.out, "❌ %-28s missing\n", s.Name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d tables could not be checked", failed)
			}
			return nil
		},
	}
}

func newColumnsCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table from one sample row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}
			report, err := services.NewVerifyService(client).Columns(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			if report.NoData {
				fmt.Fprintf(a.out, "⚠️  %s has no data\n", args[0])
				return nil
			}
			for _, c := range report.Extra {
				fmt.Fprintln(a.out, c)
			}
			return nil
		},
	}
}

func newCleanupCmd(a *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every system_training guideline outside the system category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}
			if !yes && !a.confirm("Delete all non-system guidelines from system_training?") {
				fmt.Fprintln(a.out, "Cleanup cancelled.")
				return nil
			}

			report, err := services.NewGuidelineService(client).Cleanup(cmd.Context())
			if report != nil {
				fmt.Fprintf(a.out, "🧹 system: %d -> %d, other: %d -> %d (%d deleted)\n",
					report.SystemBefore, report.SystemAfter, report.OtherBefore, report.OtherAfter, report.Deleted)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
