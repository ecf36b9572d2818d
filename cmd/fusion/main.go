package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/milosgajdos/go-fusion/fusion"
)

type cli struct {
	Config string `name:"config" short:"c" type:"existingfile" help:"path to YAML tracker configuration"`
	Debug  bool   `name:"debug" help:"enable debug logging"`

	Run runCmd `cmd:"" help:"Fuse measurements read from a measurement log."`
	Sim simCmd `cmd:"" help:"Simulate a moving object and fuse its measurements."`
}

// app carries the configuration shared by all commands.
type app struct {
	cfg    fusion.Config
	logger *slog.Logger
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("fusion"),
		kong.Description("Laser and radar sensor fusion with Extended Kalman Filter."),
		kong.HelpOptions{NoAppSummary: false, Compact: true, FlagsLast: true},
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := fusion.DefaultConfig()
	if c.Config != "" {
		var err error
		cfg, err = fusion.LoadConfig(c.Config)
		if err != nil {
			logger.Error("failed to load config", "path", c.Config, "err", err)
			os.Exit(1)
		}
	}

	if err := ctx.Run(&app{cfg: cfg, logger: logger}); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "err", err)
		os.Exit(1)
	}
}
