package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// ErrUploadDeclined is returned when the operator does not confirm an upload
var ErrUploadDeclined = errors.New("upload cancelled by operator")

const progressWidth = 30

// UploadReport summarizes one uploader run. Succeeded+Failed always equals Total.
type UploadReport struct {
	BatchID   string        `json:"batch_id"`
	Table     string        `json:"table"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Requests  int           `json:"requests"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BatchUploader inserts the entries of a JSON array file chunk by chunk,
// pausing between requests. A failed chunk is counted and reported, never retried.
type BatchUploader struct {
	client    *supabase.Client
	table     string
	batchSize int
	delay     time.Duration
	metrics   *Metrics

	// Confirm is asked before anything is sent; nil means yes
	Confirm func(prompt string) bool
	// Out receives the progress bar and inline errors; nil discards them
	Out io.Writer
}

// NewBatchUploader creates an uploader into table. batchSize below 1 means one
// request per entry; delay is the minimum spacing between requests.
func NewBatchUploader(client *supabase.Client, table string, batchSize int, delay time.Duration, metrics *Metrics) *BatchUploader {
	if table == "" {
		table = models.TableTrainingData
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &BatchUploader{
		client:    client,
		table:     table,
		batchSize: batchSize,
		delay:     delay,
		metrics:   metrics,
	}
}

// LoadRecords reads a JSON array of upload records. Entries are kept as raw
// objects so columns beyond tool/intent/query/response pass through unchanged.
func LoadRecords(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of objects: %w", path, err)
	}
	return records, nil
}

// UploadFile loads path and uploads its records
func (u *BatchUploader) UploadFile(ctx context.Context, path string) (*UploadReport, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return nil, err
	}
	if u.Confirm != nil && !u.Confirm(fmt.Sprintf("Upload %d records from %s to %s?", len(records), path, u.table)) {
		return nil, ErrUploadDeclined
	}
	return u.Upload(ctx, records)
}

// Upload inserts records. Per-chunk failures never abort the run; only
// context cancellation stops it early, counting the remainder as failed.
func (u *BatchUploader) Upload(ctx context.Context, records []map[string]interface{}) (*UploadReport, error) {
	started := time.Now()
	report := &UploadReport{
		BatchID: uuid.New().String(),
		Table:   u.table,
		Total:   len(records),
	}

	limit := rate.Inf
	if u.delay > 0 {
		limit = rate.Every(u.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	out := u.Out
	if out == nil {
		out = io.Discard
	}

	log.Printf("📤 [UPLOAD] Batch %s: %d records into %s (chunk size %d)", report.BatchID, len(records), u.table, u.batchSize)

	var runErr error
	for start := 0; start < len(records); start += u.batchSize {
		end := start + u.batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := limiter.Wait(ctx); err != nil {
			remaining := len(records) - start
			report.Failed += remaining
			u.metrics.failed(u.table, remaining)
			runErr = fmt.Errorf("upload stopped after %d of %d records: %w", start, len(records), contextErr(ctx, err))
			break
		}

		for _, rec := range chunk {
			stampBatch(rec, report.BatchID)
		}

		report.Requests++
		if _, err := u.client.From(u.table).Insert(ctx, chunk); err != nil {
			report.Failed += len(chunk)
			report.Errors = append(report.Errors, fmt.Sprintf("records %s: %v", span(start, end), err))
			u.metrics.failed(u.table, len(chunk))
			fmt.Fprintf(out, "\n❌ records %s failed: %v\n", span(start, end), err)
		} else {
			report.Succeeded += len(chunk)
			u.metrics.inserted(u.table, len(chunk))
		}

		fmt.Fprintf(out, "\r%s", progressBar(end, len(records)))
	}
	if len(records) > 0 {
		fmt.Fprintln(out)
	}

	report.Duration = time.Since(started)
	log.Printf("✅ [UPLOAD] Batch %s done: %d succeeded, %d failed, %d requests", report.BatchID, report.Succeeded, report.Failed, report.Requests)
	return report, runErr
}

// stampBatch tags rec with the batch id. Non-object metadata is kept under "original".
func stampBatch(rec map[string]interface{}, batchID string) {
	meta, ok := rec["metadata"].(map[string]interface{})
	if !ok {
		meta = map[string]interface{}{}
		if v, present := rec["metadata"]; present && v != nil {
			meta["original"] = v
		}
	}
	meta["upload_batch"] = batchID
	rec["metadata"] = meta
}

// progressBar renders "[#####-----] 5/10"
func progressBar(done, total int) string {
	if total == 0 {
		return "[" + strings.Repeat("-", progressWidth) + "] 0/0"
	}
	filled := done * progressWidth / total
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("#", filled), strings.Repeat("-", progressWidth-filled), done, total)
}

func span(start, end int) string {
	if end-start == 1 {
		return fmt.Sprintf("#%d", start+1)
	}
	return fmt.Sprintf("#%d-#%d", start+1, end)
}

// contextErr prefers the context's own error over the limiter's wrapping of it
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
