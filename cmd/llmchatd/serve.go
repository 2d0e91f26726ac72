package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"llmchatd/internal/httpapi"
)

func buildServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP daemon",
		Example: "  llmchatd serve --addr :8080 --default-model deepseek-r1-cpu",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				c.cfg.Addr, _ = flags.GetString("addr")
			}
			if flags.Changed("cors") {
				c.cfg.CORSEnabled, _ = flags.GetBool("cors")
			}
			if flags.Changed("cors-origins") {
				v, _ := flags.GetString("cors-origins")
				c.cfg.CORSAllowedOrigins = splitCSV(v)
			}
			maxBody, _ := flags.GetInt64("max-body-bytes")
			sendTimeout, _ := flags.GetDuration("send-timeout")
			preload, _ := flags.GetBool("preload")
			return c.serve(maxBody, sendTimeout, preload)
		},
	}
	cmd.Flags().String("addr", c.cfg.Addr, "HTTP listen address, e.g. :8080")
	cmd.Flags().Bool("cors", false, "Enable CORS")
	cmd.Flags().String("cors-origins", "", "Comma-separated allowed CORS origins")
	cmd.Flags().Int64("max-body-bytes", 1<<20, "Maximum JSON request body size")
	cmd.Flags().Duration("send-timeout", 0, "Upper bound for one streamed reply (0 disables)")
	cmd.Flags().Bool("preload", false, "Load the default model before accepting requests")
	return cmd
}

func (c *cli) serve(maxBody int64, sendTimeout time.Duration, preload bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.log.Warn().Err(err).Msg("serve event=close_failed")
		}
	}()

	httpapi.SetLogger(c.log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(maxBody)
	httpapi.SetSendTimeoutSeconds(int64(sendTimeout / time.Second))
	httpapi.SetCORSOptions(c.cfg.CORSEnabled, c.cfg.CORSAllowedOrigins, nil, nil)

	if preload && a.SelectedModel() != "" {
		if _, err := a.Switch(ctx, a.SelectedModel()); err != nil {
			c.log.Warn().Err(err).Msg("serve event=preload_failed")
		}
	}

	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           httpapi.NewMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("addr", c.cfg.Addr).Str("models_dir", c.cfg.ModelsDir).Int("models", a.Models.Len()).Msg("serve event=listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	c.log.Info().Msg("serve event=shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Warn().Err(err).Msg("serve event=graceful_shutdown_failed")
	}
	return nil
}
