package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/models"
	"trainingops/internal/services"
)

func newUploadCmd(a *cli) *cobra.Command {
	var (
		table     string
		yes       bool
		strict    bool
		batchSize int
		delay     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload [file.json]",
		Short: "Bulk insert a JSON array of training examples",
		Long: `Insert every entry of a JSON array file into a table, one request per batch,
pausing between requests. Failed batches are reported and counted, never retried.
Re-uploading the same file inserts the entries again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := a.prompt("Path to JSON file")
				if err != nil {
					return err
				}
				path = p
			}

			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("batch-size") {
				batchSize = a.cfg.UploadBatchSize
			}
			if !cmd.Flags().Changed("delay") {
				delay = a.cfg.UploadDelay
			}

			uploader := services.NewBatchUploader(client, table, batchSize, delay, nil)
			uploader.Out = a.out
			if !yes {
				uploader.Confirm = a.confirm
			}

			report, err := uploader.UploadFile(cmd.Context(), path)
			if errors.Is(err, services.ErrUploadDeclined) {
				fmt.Fprintln(a.out, "Upload cancelled.")
				return nil
			}
			if report != nil {
				fmt.Fprintf(a.out, "\n📊 %s: %d succeeded, %d failed of %d in %d requests (batch %s)\n",
					report.Table, report.Succeeded, report.Failed, report.Total, report.Requests, report.BatchID)
			}
			if err != nil {
				return err
			}

			if report.Failed > 0 && (strict || a.cfg.UploadStrict) {
				return fmt.Errorf("%d of %d records failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", models.TableTrainingData, "target table")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record fails")
	cmd.Flags().IntVar(&batchSize, "batch-size", 1, "records per insert request (default UPLOAD_BATCH_SIZE)")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "minimum spacing between requests (default UPLOAD_DELAY)")
	return cmd
}
