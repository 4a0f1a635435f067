// Package clicommand wires command-line flags and environment variables into
// the importer's runtime configuration, and builds the logger that the rest
// of the process shares.
package clicommand

import (
	"context"
	"fmt"
	"os"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/cliconfig"
	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/logger"
	"github.com/oleiade/reflections"
	"github.com/urfave/cli"
)

var (
	LogLevelFlag = cli.StringFlag{
		Name:   "log-level",
		Value:  "notice",
		Usage:  "Set the log level, making logging more or less verbose. Allowed values are: debug, info, notice, warn, error, fatal",
		EnvVar: "IMPORTER_LOG_LEVEL",
	}

	DebugFlag = cli.BoolFlag{
		Name:   "debug",
		Usage:  "Enable debug mode. Synonym for '--log-level debug'. Takes precedence over '--log-level' (default: false)",
		EnvVar: "IMPORTER_DEBUG",
	}

	DebugHTTPFlag = cli.BoolFlag{
		Name:   "debug-http",
		Usage:  "Dump failed ingestion API responses, bodies included, to the debug log (default: false)",
		EnvVar: "IMPORTER_DEBUG_HTTP",
	}

	NoColorFlag = cli.BoolFlag{
		Name:   "no-color",
		Usage:  "Don't show colors in logging (default: false)",
		EnvVar: "IMPORTER_NO_COLOR",
	}

	ProfileFlag = cli.StringFlag{
		Name:   "profile",
		Usage:  "Enable a profiling mode, either cpu, mem, mutex, block, thread or trace",
		EnvVar: "IMPORTER_PROFILE",
	}
)

// GlobalConfig carries the flags common to every subcommand.
type GlobalConfig struct {
	Debug     bool   `cli:"debug"`
	LogLevel  string `cli:"log-level"`
	NoColor   bool   `cli:"no-color"`
	DebugHTTP bool   `cli:"debug-http"`
	Profile   string `cli:"profile"`
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		NoColorFlag,
		DebugFlag,
		LogLevelFlag,
		DebugHTTPFlag,
		ProfileFlag,
	}
}

// CreateLogger builds a console logger and applies the log-level and debug
// flags found (via reflection) on cfg.
func CreateLogger(cfg any) logger.Logger {
	printer := logger.NewTextPrinter(os.Stderr)

	noColor, err := reflections.GetField(cfg, "NoColor")
	printer.Colors = !(err == nil && noColor == true)

	l := logger.NewConsoleLogger(printer, os.Exit)
	l.SetLevel(logger.NOTICE)

	if err := handleLogLevelFlag(l, cfg); err != nil {
		l.Warn("Error when setting log level: %v. Defaulting log level to NOTICE", err)
	}

	if debugI, err := reflections.GetField(cfg, "Debug"); err == nil {
		if debug, ok := debugI.(bool); ok && debug {
			l.SetLevel(logger.DEBUG)
		}
	}

	return l
}

func handleLogLevelFlag(l logger.Logger, cfg any) error {
	logLevel, err := reflections.GetField(cfg, "LogLevel")
	if err != nil {
		return err
	}

	llStr, ok := logLevel.(string)
	if !ok {
		return fmt.Errorf("log level %v (%T) couldn't be cast to string", logLevel, logLevel)
	}

	level, err := logger.LevelFromString(llStr)
	if err != nil {
		return err
	}

	l.SetLevel(level)
	return nil
}

// HandleProfileFlag starts a profiling session if cfg carries a non-empty
// Profile field, returning the function that must be deferred to stop it.
func HandleProfileFlag(l logger.Logger, cfg any) func() {
	modeField, _ := reflections.GetField(cfg, "Profile")
	if mode, ok := modeField.(string); ok && mode != "" {
		return Profile(l, mode)
	}
	return func() {}
}

// setupLoggerAndConfig populates cfg from CLI flags and environment
// variables, then builds the logger the rest of the command uses. No config
// file is read: the loader only reads one named by a --config flag or a
// default path, and neither is set up here, so the returned File is nil. The
// returned function must be deferred; presently it only winds down the
// optional profiler.
func setupLoggerAndConfig[T any](ctx context.Context, c *cli.Context) (
	newCtx context.Context,
	cfg T,
	l logger.Logger,
	f *cliconfig.File,
	done func(),
) {
	loader := cliconfig.Loader{CLI: c, Config: &cfg}

	warnings, err := loader.Load()
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "%s\n", err)
		os.Exit(1)
	}

	l = CreateLogger(&cfg)
	l.Debug("Loaded config")

	for _, warning := range warnings {
		l.Warn("%s", warning)
	}

	done = HandleProfileFlag(l, &cfg)
	return ctx, cfg, l, loader.File, done
}
