package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/generators"
	"trainingops/internal/llm"
	"trainingops/internal/models"
	"trainingops/internal/services"
)

func newGenerateCmd(a *cli) *cobra.Command {
	var (
		table    string
		dryRun   bool
		limit    int
		activate int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the active generation algorithm into training_data",
		Long: `Select the active row of an algorithm table, run the generator it names with
its parameters and insert the produced examples into training_data.
The llm generator is only available when an LLM provider key is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("table") {
				table = a.cfg.GenerationTable
			}
			if err := checkAlgorithmTable(table); err != nil {
				return err
			}

			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}

			var completer generators.Completer
			if c, name, err := a.newCompleter(a.cfg); err == nil {
				completer = c
				log.Printf("🤖 LLM generator available (%s)", name)
			} else {
				log.Printf("⚠️  LLM generator unavailable: %v", err)
			}

			training := services.NewTrainingService(client)
			svc := services.NewAlgorithmService(client, generators.Builtins(training, completer), nil)

			if cmd.Flags().Changed("activate") {
				if err := svc.Activate(cmd.Context(), table, activate); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✅ Algorithm %d is now active in %s\n", activate, table)
			}

			var out io.Writer
			if dryRun {
				out = a.out
			}
			report, err := svc.Run(cmd.Context(), table, services.RunOptions{DryRun: dryRun, Limit: limit, Out: out})
			if errors.Is(err, services.ErrNoActiveAlgorithm) {
				fmt.Fprintf(a.out, "⚠️  %s has no active algorithm\n", table)
				return nil
			}
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintf(a.errOut, "🧪 Dry run: %d generated, %d skipped (%s v%d)\n",
					report.Generated, report.Skipped, report.Algorithm, report.Version)
				return nil
			}
			fmt.Fprintf(a.out, "📊 %s v%d: %d generated, %d skipped, %d inserted, %d failed\n",
				report.Algorithm, report.Version, report.Generated, report.Skipped, report.Inserted, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d generated records failed to insert", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", models.TableTrainingAlgorithm, "algorithm table (default GENERATION_TABLE)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the generated records instead of inserting them")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep at most this many records (0 keeps all)")
	cmd.Flags().Int64Var(&activate, "activate", 0, "make this algorithm id active before running")

	cmd.AddCommand(newGenerateListCmd(a))
	return cmd
}

func newGenerateListCmd(a *cli) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rows of an algorithm table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("table") {
				table = a.cfg.GenerationTable
			}
			if err := checkAlgorithmTable(table); err != nil {
				return err
			}
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}
			rows, err := services.NewAlgorithmService(client, generators.NewRegistry(), nil).List(cmd.Context(), table)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tGENERATOR\tVERSION\tACTIVE")
			for _, r := range rows {
				active := ""
				if r.IsActive {
					active = "*"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.Generator, r.Version, active)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&table, "table", models.TableTrainingAlgorithm, "algorithm table (default GENERATION_TABLE)")
	return cmd
}

func checkAlgorithmTable(table string) error {
	if slices.Contains(models.AlgorithmTables, table) {
		return nil
	}
	return fmt.Errorf("unknown algorithm table %q (want one of %s)", table, strings.Join(models.AlgorithmTables, ", "))
}

func newQueryCmd(a *cli) *cobra.Command {
	var (
		save   bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Answer a query with the language model, using similar training examples",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := config.AnonRole
			if save {
				role = config.ServiceRole
			}
			client, err := a.backend(role)
			if err != nil {
				return err
			}
			completer, model, err := a.newCompleter(a.cfg)
			if err != nil {
				return err
			}

			svc := services.NewQueryService(services.NewTrainingService(client), completer, model)
			result, err := svc.Process(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if save {
				stored, err := svc.Save(cmd.Context(), result)
				if err != nil {
					return err
				}
				log.Printf("💾 Saved as inactive example %d", stored.ID)
			}

			if output == "" {
				return a.printJSON(result)
			}
			if err := writeFile(output, func(w io.Writer) error { return writeJSON(w, result) }); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Wrote result to %s\n", output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the answer as an inactive training example")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result JSON to this file")
	return cmd
}

func newLLMCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llm",
		Short: "Language model provider utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check that the configured provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			completer, model, err := a.newCompleter(a.cfg)
			if err != nil {
				return err
			}
			reply, err := llm.Ping(cmd.Context(), completer)
			if err != nil {
				return fmt.Errorf("%s: %w", model, err)
			}
			fmt.Fprintf(a.out, "✅ %s replied: %s\n", model, reply)
			return nil
		},
	})
	return cmd
}
