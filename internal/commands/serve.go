package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			app := api.New(api.Config{
				Service:     e.svc,
				Store:       e.store,
				DefaultUser: e.cfg.UserID,
				DefaultBank: e.cfg.Import.DefaultBank,
				Log:         e.log,
			})

			go sweepSessions(ctx, e, time.Minute)

			errc := make(chan error, 1)
			go func() { errc <- app.Listen(addr) }()
			e.log.Info().Str("addr", addr).Msg("serving")

			select {
			case err := <-errc:
				return fmt.Errorf("serving on %s: %w", addr, err)
			case <-ctx.Done():
			}
			e.log.Info().Msg("shutting down")
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				return fmt.Errorf("shutting down: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// sweepSessions drops expired import sessions until ctx is done.
func sweepSessions(ctx context.Context, e *env, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := e.sessions.Sweep(); n > 0 {
				e.log.Debug().Int("dropped", n).Int("open", e.sessions.Len()).Msg("expired import sessions dropped")
			}
		}
	}
}
