package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/arthur-debert/static-api/staticapi/api"
	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/spf13/cobra"
)

// addServeCommand adds the serve command
func (cli *CLI) addServeCommand() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. The data directory is created if missing.
The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cli.executeServe(ctx)
		},
	}

	flags := serveCmd.Flags()
	flags.StringP("host", "i", "127.0.0.1", "IP address of the server")
	flags.IntP("port", "p", 5800, "Port that the server listens on")
	flags.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins (* for any)")
	flags.Int("default-limit", 30, "Page size when a request has no limit")

	cli.rootCmd.AddCommand(serveCmd)
}

func (cli *CLI) executeServe(ctx context.Context) error {
	const operation = "start server"

	port := cli.viperInst.GetInt("port")
	if port < 0 || port > 65535 {
		return NewValidationError(operation, "port", strconv.Itoa(port), "Use a port between 1 and 65535")
	}
	addr := net.JoinHostPort(cli.viperInst.GetString("host"), strconv.Itoa(port))

	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapError(operation, err, CommonSuggestions.CheckPort)
	}

	fmt.Fprintln(cli.out, "Welcome to static-api!")
	fmt.Fprintf(cli.out, "To get started, please visit http://%s in your browser\n", ln.Addr())
	return cli.serve(ctx, s, ln)
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down
// and waits for in-flight requests.
func (cli *CLI) serve(ctx context.Context, s store.Store, ln net.Listener) error {
	handler := api.New(s, api.Config{
		DataDir:      cli.viperInst.GetString("data-dir"),
		CORSOrigins:  cli.corsOrigins(),
		DefaultLimit: cli.viperInst.GetInt("default-limit"),
		Logger:       cli.logger,
	})

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	cli.logger.Info("server started", "addr", ln.Addr().String(), "data_dir", cli.viperInst.GetString("data-dir"))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapError("serve", err)
	case <-ctx.Done():
	}

	cli.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapError("shut down server", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapError("serve", err)
	}
	return nil
}

// corsOrigins accepts both list values and comma separated strings, which
// is how they arrive from environment variables
func (cli *CLI) corsOrigins() []string {
	var origins []string
	for _, entry := range cli.viperInst.GetStringSlice("cors-origins") {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}
