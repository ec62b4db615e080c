package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vkviyu/wsbridge/transport/server"
)

// DefaultShutdownTimeout bounds graceful shutdown of the serve command.
var DefaultShutdownTimeout = 5 * time.Second

func (w *WsBridgeCmd) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a websocket echo endpoint and a plain HTTP route that never upgrades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.serve(ctx)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "127.0.0.1:8080", "listen address")
	flags.String("path", "/chat", "websocket endpoint path")
	flags.String("plain-path", "/plain", "path answering 200 without upgrading")
	flags.String("token", "", "bearer token required on the websocket endpoint")
	w.viper.BindPFlag("server.addr", flags.Lookup("addr"))
	w.viper.BindPFlag("server.path", flags.Lookup("path"))
	w.viper.BindPFlag("server.plain_path", flags.Lookup("plain-path"))
	w.viper.BindPFlag("server.token", flags.Lookup("token"))
	return cmd
}

func (w *WsBridgeCmd) serve(ctx context.Context) error {
	sc := w.config.Server
	handler, manager := server.NewHandler(server.Options{
		Path:      sc.Path,
		PlainPath: sc.PlainPath,
		Token:     sc.Token,
		ReadLimit: sc.ReadLimit,
	}, w.logger)
	srv := &http.Server{
		Addr:    sc.Addr,
		Handler: handler,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	w.logger.WithField("addr", sc.Addr).WithField("path", sc.Path).Info("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	manager.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
