package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/younsl/bucketpulse/internal/config"
	"github.com/younsl/bucketpulse/pkg/utils"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// app holds the global flags and everything loaded from them
type app struct {
	configPath string
	region     string
	logLevel   string
	logFormat  string
	output     string

	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, now: time.Now}
	if err := a.rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bucketpulse",
		Short: "Monitor the health of S3 prefixes from journal and inventory tables",
		Long: `bucketpulse periodically queries the S3 Metadata journal and inventory
tables of registered buckets, evaluates a health status for every tracked
prefix, keeps an evaluation history, and raises alerts on transitions.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv("BUCKETPULSE_CONFIG"), "Path to bucketpulse.yaml (defaults are used when empty)")
	flags.StringVarP(&a.region, "region", "r", "", fmt.Sprintf("AWS region (default from config, then %s)", utils.GetDefaultRegion()))
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format: text or json")
	flags.StringVarP(&a.output, "output", "o", outputTable, "Output format: table or json")

	root.AddCommand(
		a.runCommand(),
		a.serveCommand(),
		a.statusCommand(),
		a.historyCommand(),
		a.alertsCommand(),
		a.resolveCommand(),
		a.doctorCommand(),
		a.versionCommand(),
	)
	return root
}

// setup builds the logger and loads the configuration before any subcommand runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(a.stderr, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	a.output = strings.ToLower(a.output)
	if a.output != outputTable && a.output != outputJSON {
		return fmt.Errorf("invalid output format %q (want table or json)", a.output)
	}

	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.region != "" {
		cfg.Region = a.region
	}
	if !utils.IsValidRegion(cfg.Region) {
		a.logger.Warn("region does not look like an AWS region code", "region", cfg.Region)
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded", "path", a.configPath, "region", cfg.Region, "backend", cfg.Store.Backend)
	return nil
}

// startSpinner shows progress on stderr for interactive table output only
func (a *app) startSpinner(msg string) *spinner.Spinner {
	if a.output != outputTable {
		return nil
	}
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	return s
}

func stopSpinner(s *spinner.Spinner, final string) {
	if s == nil {
		return
	}
	s.FinalMSG = final
	s.Stop()
}

// render writes v as JSON or calls table for table output
func (a *app) render(v any, table func(io.Writer)) error {
	if a.output == outputJSON {
		return utils.WriteJSON(a.stdout, v)
	}
	table(a.stdout)
	return nil
}
