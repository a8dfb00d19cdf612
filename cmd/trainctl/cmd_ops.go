package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/database"
	"trainingops/internal/preflight"
	"trainingops/internal/services"
	"trainingops/internal/supabase"
	"trainingops/pkg/auth"
)

func newExportCmd(a *cli) *cobra.Command {
	var (
		format string
		output string
		filter services.ExportFilter
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write training_data out as JSON, JSONL or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format == services.FormatXLSX && output == "" {
				return fmt.Errorf("--output is required for xlsx")
			}
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}

			svc := services.NewExportService(client)
			var n int
			export := func(w io.Writer) error {
				var err error
				n, err = svc.Export(cmd.Context(), w, format, filter)
				return err
			}
			if output == "" {
				err = export(a.out)
			} else {
				err = writeFile(output, export)
			}
			if err != nil {
				return err
			}
			log.Printf("📦 Exported %d rows as %s", n, format)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", services.FormatJSON, "json, jsonl or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&filter.Tool, "tool", "", "only rows for this tool")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "only active rows")
	return cmd
}

func newSchemaCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply SQL schema files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply <file.sql>",
		Short: "Run each statement of a SQL file in order",
		Long: `Run each statement of a SQL file in order, stopping at the first failure.
Statements go over DATABASE_URL when it is set, otherwise one by one through
the exec_sql RPC function, which must exist in the backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL != "" {
				db, err := database.New(a.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				n, err := db.ApplyFile(cmd.Context(), args[0])
				fmt.Fprintf(a.out, "📦 %d statements applied\n", n)
				return err
			}

			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			statements := database.SplitStatements(string(data))
			for i, stmt := range statements {
				if _, err := client.RPC(cmd.Context(), "exec_sql", map[string]interface{}{"query": stmt}); err != nil {
					fmt.Fprintf(a.out, "📦 %d statements applied\n", i)
					if supabase.IsUndefinedFunction(err) {
						return fmt.Errorf("exec_sql is not installed: set DATABASE_URL or create the function first: %w", err)
					}
					return fmt.Errorf("statement %d of %d failed: %w", i+1, len(statements), err)
				}
			}
			fmt.Fprintf(a.out, "📦 %d statements applied\n", len(statements))
			return nil
		},
	})
	return cmd
}

func newPreflightCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check configuration, backend reachability and tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var backend *supabase.Client
			if c, err := a.backend(config.ServiceRole); err == nil {
				backend = c
			}

			var db *database.DB
			if a.cfg.DatabaseURL != "" {
				conn, err := database.New(a.cfg.DatabaseURL)
				if err != nil {
					log.Printf("⚠️  %v", err)
				} else {
					defer conn.Close()
					db = conn
				}
			}

			results := preflight.NewChecker(a.cfg, backend, db).RunAll(cmd.Context())
			if preflight.HasFailures(results) {
				return fmt.Errorf("pre-flight checks failed")
			}
			fmt.Fprintln(a.out, "✅ All pre-flight checks passed")
			return nil
		},
	}
}

func newTokenCmd(a *cli) *cobra.Command {
	var (
		user auth.User
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for calling the server locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, err := auth.NewVerifier(a.cfg.SupabaseJWTSecret)
			if err != nil {
				return err
			}
			token, err := verifier.Sign(user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user.ID, "user", "local-operator", "subject (user id)")
	cmd.Flags().StringVar(&user.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&user.Role, "role", "authenticated", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
