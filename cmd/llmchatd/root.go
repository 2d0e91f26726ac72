package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmchatd/internal/app"
	"llmchatd/internal/config"
)

// cli carries the merged configuration and logger between commands.
type cli struct {
	configPath string
	cfg        config.Config
	log        zerolog.Logger
	out        io.Writer
	in         io.Reader
}

func buildRootCmd() *cobra.Command {
	c := &cli{cfg: config.Defaults(), out: os.Stdout, in: os.Stdin}
	return buildRootCmdWith(c)
}

// buildRootCmdWith constructs the command tree. Flags override values read
// from --config, which override built-in defaults.
func buildRootCmdWith(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "llmchatd",
		Short:         "Local LLM chat daemon and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", os.Getenv("LLMCHATD_CONFIG"), "Config file (.yaml, .json or .toml)")
	pf.String("log-level", c.cfg.LogLevel, "Log level: debug|info|warn|error")
	pf.String("models-dir", c.cfg.ModelsDir, "Directory scanned for *.gguf model files")
	pf.String("download-dir", c.cfg.DownloadDir, "Directory holding downloaded model weights")
	pf.String("catalog", "", "Extra model catalog file (.yaml, .json or .toml)")
	pf.String("db", c.cfg.DBPath, "SQLite database for conversations")
	pf.String("default-model", c.cfg.DefaultModel, "Model selected at startup")
	pf.Int("threads", c.cfg.Threads, "Inference threads")
	pf.Int("gpu-layers", 0, "Layers offloaded for gpu-backend models")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if c.configPath != "" {
			fileCfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = mergeConfig(config.Defaults(), fileCfg)
		}
		flags := cmd.Flags()
		str := func(name string, dst *string) {
			if flags.Changed(name) {
				*dst, _ = flags.GetString(name)
			}
		}
		str("log-level", &c.cfg.LogLevel)
		str("models-dir", &c.cfg.ModelsDir)
		str("download-dir", &c.cfg.DownloadDir)
		str("catalog", &c.cfg.CatalogFile)
		str("db", &c.cfg.DBPath)
		str("default-model", &c.cfg.DefaultModel)
		if flags.Changed("threads") {
			c.cfg.Threads, _ = flags.GetInt("threads")
		}
		if flags.Changed("gpu-layers") {
			c.cfg.GPULayers, _ = flags.GetInt("gpu-layers")
		}
		c.log = newLogger(c.cfg.LogLevel, os.Stderr)
		return nil
	}

	root.AddCommand(buildServeCmd(c), buildChatCmd(c), buildModelsCmd(c))
	return root
}

// mergeConfig overlays the non-zero fields of over onto base.
func mergeConfig(base, over config.Config) config.Config {
	for _, p := range []struct{ dst *string; src string }{
		{&base.Addr, over.Addr},
		{&base.ModelsDir, over.ModelsDir},
		{&base.DownloadDir, over.DownloadDir},
		{&base.CatalogFile, over.CatalogFile},
		{&base.DBPath, over.DBPath},
		{&base.DefaultModel, over.DefaultModel},
		{&base.LogLevel, over.LogLevel},
	} {
		if p.src != "" {
			*p.dst = p.src
		}
	}
	if over.Threads > 0 {
		base.Threads = over.Threads
	}
	if over.GPULayers > 0 {
		base.GPULayers = over.GPULayers
	}
	if over.CORSEnabled {
		base.CORSEnabled = true
	}
	if len(over.CORSAllowedOrigins) > 0 {
		base.CORSAllowedOrigins = over.CORSAllowedOrigins
	}
	return base
}

// newLogger returns a console logger at level. Unknown levels mean info.
func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.Options{Config: c.cfg, Logger: &c.log})
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
