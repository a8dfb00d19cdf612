// Command trainctl is the operator CLI for the training-data pipeline.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/llm"
	"trainingops/internal/logging"
	"trainingops/internal/supabase"
)

// cli is the state shared by every command of one process
type cli struct {
	cfg    *config.Config
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	clients map[config.KeyRole]*supabase.Client

	// newCompleter builds the language model; replaced in tests
	newCompleter func(cfg *config.Config) (llm.Completer, string, error)
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{
		in:           bufio.NewReader(in),
		out:          out,
		errOut:       errOut,
		clients:      make(map[config.KeyRole]*supabase.Client),
		newCompleter: defaultCompleter,
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd(newCLI(os.Stdin, os.Stdout, os.Stderr))
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "trainctl",
		Short: "Operate the training-data pipeline",
		Long: `trainctl uploads, verifies, generates and exports training data held in the
hosted backend, and maintains the guideline, endpoint, script and config tables.

Credentials come from the environment (or a .env file):
  SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY, SUPABASE_KEY`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				a.cfg = config.Load()
			}
			logging.InitWriter(a.errOut, a.cfg.Environment, a.cfg.LogLevel)
			log.SetOutput(a.errOut)
			logging.WithCommand(cmd.CommandPath()).Debug("command started", "args", len(args))
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newUploadCmd(a),
		newVerifyCmd(a),
		newTablesCmd(a),
		newColumnsCmd(a),
		newCleanupCmd(a),
		newEndpointsCmd(a),
		newScriptsCmd(a),
		newGenerateCmd(a),
		newQueryCmd(a),
		newGuidelinesCmd(a),
		newConfigCmd(a),
		newExportCmd(a),
		newSchemaCmd(a),
		newLLMCmd(a),
		newPreflightCmd(a),
		newTokenCmd(a),
	)
	return root
}

// backend returns the process-wide client for role, building it on first use.
// Missing credentials fail here, before any request.
func (a *cli) backend(role config.KeyRole) (*supabase.Client, error) {
	if c, ok := a.clients[role]; ok {
		return c, nil
	}

	c, err := supabase.NewFromConfig(a.cfg, role, supabase.WithLogger(a.logger(logrus.WarnLevel)))
	if err != nil {
		return nil, err
	}
	a.clients[role] = c
	return c, nil
}

// logger builds a JSON logrus logger on stderr
func (a *cli) logger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(a.errOut)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(level)
	return logger
}

// confirm asks a yes/no question on stdin; anything but y/yes is no
func (a *cli) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// prompt reads one non-empty line from stdin
func (a *cli) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil && err != io.EOF {
			return "", err
		}
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// writeFile creates path, hands it to write and reports the first of the
// write and close errors
func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func (a *cli) printJSON(v interface{}) error {
	return writeJSON(a.out, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func defaultCompleter(cfg *config.Config) (llm.Completer, string, error) {
	key, err := cfg.LLMKey()
	if err != nil {
		return nil, "", err
	}
	model, err := llm.New(cfg.LLMProvider, key, cfg.LLMModel)
	if err != nil {
		return nil, "", err
	}
	return model, model.Name(), nil
}
