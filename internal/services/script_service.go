package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

var (
	// ErrScriptNotFound is returned when no active script matches
	ErrScriptNotFound = errors.New("script not found")
	// ErrUnsupportedLanguage is returned for a language with no known interpreter
	ErrUnsupportedLanguage = errors.New("unsupported script language")
)

// interpreter command and temp file extension per language
var interpreters = map[string]struct {
	command string
	ext     string
}{
	"python": {"python3", ".py"},
	"bash":   {"bash", ".sh"},
	"sh":     {"sh", ".sh"},
	"node":   {"node", ".js"},
}

var extLanguages = map[string]string{
	".py": "python",
	".sh": "bash",
	".js": "node",
}

// tempNameReplacer keeps a stored name usable inside an os.CreateTemp pattern
var tempNameReplacer = strings.NewReplacer("/", "_", "\\", "_", "*", "_")

// ScriptInput describes a local file to store in the scripts table
type ScriptInput struct {
	Name        string
	Category    string
	Language    string
	Path        string
	Description string
	Parameters  []byte
}

// ScriptService stores script source rows and runs them on demand
type ScriptService struct {
	client  *supabase.Client
	table   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewScriptService creates a script registry. timeout bounds each Run; 0 means none.
func NewScriptService(client *supabase.Client, timeout time.Duration) *ScriptService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	return &ScriptService{
		client:  client,
		table:   models.TableScripts,
		timeout: timeout,
		logger:  logger,
	}
}

// SetLogger replaces the dispatcher logger
func (s *ScriptService) SetLogger(l *logrus.Logger) {
	s.logger = l
}

// Store reads in.Path and upserts it as script in.Name
func (s *ScriptService) Store(ctx context.Context, in ScriptInput) (*models.Script, error) {
	content, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", in.Path, err)
	}

	name := in.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
	}
	language := in.Language
	if language == "" {
		language = extLanguages[filepath.Ext(in.Path)]
	}
	if _, ok := interpreters[language]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	category := in.Category
	if category == "" {
		category = "general"
	}

	now := time.Now().UTC()
	row := models.Script{
		Name:        name,
		Category:    category,
		Description: in.Description,
		Language:    language,
		Content:     string(content),
		Parameters:  in.Parameters,
		IsActive:    true,
		UpdatedAt:   &now,
	}
	res, err := s.client.From(s.table).Upsert(ctx, row, "name")
	if err != nil {
		return nil, fmt.Errorf("failed to store script %s: %w", name, err)
	}

	s.logger.WithFields(logrus.Fields{
		"script":   name,
		"category": category,
		"language": language,
		"bytes":    len(content),
	}).Info("script stored")

	var stored []models.Script
	if err := res.Decode(&stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return &row, nil
	}
	return &stored[0], nil
}

// List returns active scripts without their content, optionally for one category
func (s *ScriptService) List(ctx context.Context, category string) ([]models.ScriptSummary, error) {
	q := s.client.From(s.table).
		Select("name", "category", "language", "description").
		Eq("is_active", true).
		Order("category", true).
		Order("name", true)
	if category != "" {
		q = q.Eq("category", category)
	}
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	var rows []models.ScriptSummary
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get fetches an active script by name, optionally constrained to a category
func (s *ScriptService) Get(ctx context.Context, name, category string) (*models.Script, error) {
	q := s.client.From(s.table).Eq("name", name).Eq("is_active", true).Limit(1)
	if category != "" {
		q = q.Eq("category", category)
	}
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch script %s: %w", name, err)
	}
	var rows []models.Script
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	return &rows[0], nil
}

// Run fetches a script, writes it to a temporary file and executes it with
// the interpreter for its language. A non-zero exit is returned as an error.
func (s *ScriptService) Run(ctx context.Context, name, category string, args []string, stdout, stderr io.Writer) error {
	script, err := s.Get(ctx, name, category)
	if err != nil {
		return err
	}

	interp, ok := interpreters[script.Language]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, script.Language)
	}

	tmp, err := os.CreateTemp("", "trainctl-"+tempNameReplacer.Replace(script.Name)+"-*"+interp.ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script.Content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, interp.command, append([]string{tmp.Name()}, args...)...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	fields := logrus.Fields{
		"script":   script.Name,
		"language": script.Language,
		"args":     len(args),
	}
	s.logger.WithFields(fields).Info("running script")

	started := time.Now()
	err = cmd.Run()
	fields["duration_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Warn("script failed")
		return fmt.Errorf("script %s failed: %w", script.Name, err)
	}
	s.logger.WithFields(fields).Info("script finished")
	return nil
}
