package cli

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/dochatty/vulpes/cmd/vulpes/internal/build"
	"github.com/dochatty/vulpes/redact"
	"github.com/dochatty/vulpes/redact/policy"
)

const (
	appName        = "vulpes"
	appDescription = "PHI redaction engine for clinical free text"
)

// Exit codes per the batch contract.
const (
	exitOK            = 0
	exitInvalidInput  = 2
	exitInvalidPolicy = 3
	exitSpanBudget    = 4
	exitInternalFault = 5
)

// GlobalConfig holds flags shared by every command.
type GlobalConfig struct {
	LogLevel string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log verbosity"`
	Pretty   bool   `name:"pretty" default:"true" negatable:"" help:"Human-readable log output (JSON when disabled)"`
}

// CLI is the root command structure.
type CLI struct {
	GlobalConfig

	Redact  RedactCmd  `cmd:"" help:"Redact a clinical document"`
	Verify  VerifyCmd  `cmd:"" help:"Verify a redaction receipt"`
	Version VersionCmd `cmd:"" help:"Print build information"`
}

// Run executes the vulpes CLI and returns the process exit code.
func Run(version, commit, date string) int {
	build.SetBuildInfo(version, commit, date)

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	logger := setupLogger(&cli.GlobalConfig)
	logger.Debug("vulpes CLI starting", "version", version, "commit", commit)

	if err := ctx.Run(&cli.GlobalConfig); err != nil {
		logger.Error("command failed", "error", err)
		return exitCodeFor(err)
	}
	return exitOK
}

// exitCodeFor maps the engine's error taxonomy onto exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, policy.ErrInvalidPolicy), errors.Is(err, policy.ErrUnknownField):
		return exitInvalidPolicy
	case errors.Is(err, redact.ErrInvalidInput), errors.Is(err, redact.ErrInputTooLarge),
		errors.Is(err, os.ErrNotExist):
		return exitInvalidInput
	case errors.Is(err, redact.ErrSpanBudgetExceeded):
		return exitSpanBudget
	default:
		return exitInternalFault
	}
}

// setupLogger configures the global logger based on config.
func setupLogger(cfg *GlobalConfig) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if !cfg.Pretty {
		logger.SetFormatter(log.JSONFormatter)
	}

	log.SetDefault(logger)
	return logger
}
