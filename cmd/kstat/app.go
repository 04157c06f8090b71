package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	kstat "github.com/illumos/go-kstat"
	"github.com/illumos/go-kstat/internal/config"
	"github.com/illumos/go-kstat/internal/logging"
	"github.com/illumos/go-kstat/internal/output"
	"github.com/illumos/go-kstat/kstattest"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "kstat",
		Usage:   "List, read and serve kernel statistics",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Sources: cli.EnvVars("KSTAT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (auto, console, logfmt, json)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"t"},
				Usage:   fmt.Sprintf("Output format (supported values: %s)", strings.Join(output.SupportedFormats(), ", ")),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "module",
				Usage: "Only kstats of this module",
			},
			&cli.StringFlag{
				Name:  "class",
				Usage: "Only kstats of this class",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Only kstats of this name",
			},
			&cli.IntFlag{
				Name:  "instance",
				Value: kstat.AnyInstance,
				Usage: "Only kstats of this instance (-1 for any)",
			},
			&cli.StringFlag{
				Name:  "fixture",
				Usage: "Use the YAML kstat chain in this file instead of the system's kstats",
			},
			&cli.BoolFlag{
				Name:  "isolate-decode-errors",
				Usage: "Report kstats that can't be decoded per record instead of failing",
			},
		},
		Commands: []*cli.Command{
			listCmd(),
			readCmd(),
			getCmd(),
			chainIDCmd(),
			serveCmd(),
		},
	}
}

// loadConfig reads the configuration file and environment, then
// applies whichever flags were given on the command line.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("log-level") {
		cfg.Logging.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Logging.Format = cmd.String("log-format")
	}
	if cmd.IsSet("format") {
		cfg.Output.Format = output.Format(cmd.String("format"))
	}
	if cmd.IsSet("output") {
		cfg.Output.Path = cmd.String("output")
	}
	if cmd.IsSet("module") {
		cfg.Filter.Module = cmd.String("module")
	}
	if cmd.IsSet("class") {
		cfg.Filter.Class = cmd.String("class")
	}
	if cmd.IsSet("name") {
		cfg.Filter.Name = cmd.String("name")
	}
	if cmd.IsSet("instance") {
		cfg.Filter.Instance = cmd.Int("instance")
	}
	if cmd.IsSet("fixture") {
		cfg.Fixture = cmd.String("fixture")
	}
	if cmd.IsSet("isolate-decode-errors") {
		cfg.IsolateDecodeErrors = cmd.Bool("isolate-decode-errors")
	}
	if cmd.IsSet("listen") {
		cfg.Server.Address = cmd.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is what every command needs.
type env struct {
	cfg *config.Config
	log *slog.Logger
	out io.Writer
}

func setup(cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	root := cmd.Root()
	log := logging.New(root.ErrWriter, cfg.Logging.Level, cfg.Logging.Format, "kstat")
	slog.SetDefault(log)
	return &env{cfg: cfg, log: log, out: root.Writer}, nil
}

// newReader opens a Reader for f on the system's kstats or, with a
// fixture, on a fresh copy of the fixture chain.
func (e *env) newReader(f kstat.Filter, m *kstat.Metrics) (*kstat.Reader, error) {
	opts := []kstat.Option{kstat.WithLogger(e.log), kstat.WithMetrics(m)}
	if e.cfg.IsolateDecodeErrors {
		opts = append(opts, kstat.WithIsolatedDecodeErrors())
	}
	if e.cfg.Fixture != "" {
		c, err := kstattest.LoadFixtureFile(e.cfg.Fixture)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kstat.WithControl(c))
	}
	return kstat.NewReader(f, opts...)
}

func (e *env) writer() (*output.Writer, error) {
	if e.cfg.Output.Path == "" {
		return output.NewWriter(e.cfg.Output.Format, e.out), nil
	}
	return output.NewFileWriterOrStdout(e.cfg.Output.Format, e.cfg.Output.Path)
}

// write writes v and closes the output.
func (e *env) write(v any) error {
	w, err := e.writer()
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			e.log.Warn("failed to close output", slog.String("error", err.Error()))
		}
	}()
	return w.Write(v)
}

func closeReader(log *slog.Logger, r *kstat.Reader) {
	if err := r.Close(); err != nil {
		log.Warn("failed to close kstat reader", slog.String("error", err.Error()))
	}
}

// newRegistry returns a registry with the Go and process collectors
// and the reader metrics.
func newRegistry() (*prometheus.Registry, *kstat.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, kstat.NewMetrics(reg)
}
