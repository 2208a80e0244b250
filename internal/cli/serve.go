package cli

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/framekit/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	sceneOpts
	addr    string
	metrics bool
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: "127.0.0.1:8080", metrics: true}

	cmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "Serve a live scene over HTTP",
		Long: `Serve keeps a scene running and exposes it over HTTP. Every resize or
visibility change is applied by a single layout goroutine and answered with
the new layout.

Endpoints:
  GET  /layout                      current layout as JSON
  GET  /layout/{name}               one entity as JSON
  GET  /layout.svg                  wireframe of the current layout
  POST /resize                      {"width": 400, "height": 600}
  PUT  /entities/{name}/visibility  {"state": "collapsed"}
  GET  /metrics                     Prometheus metrics
  GET  /healthz`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	opts.sceneOpts.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", opts.metrics, "expose Prometheus metrics at /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, stdout io.Writer, path string, opts serveOpts) error {
	handlerOpts := server.Options{Logger: c.Logger}
	if opts.metrics {
		handlerOpts.Gatherer = installMetrics()
	}

	w, _, err := c.loadWorld(path, opts.sceneOpts)
	if err != nil {
		return err
	}
	host := server.NewHost(w, c.Logger)

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		w.Close()
		return err
	}
	srv := &http.Server{
		Handler:           server.NewHandler(host, handlerOpts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hostErr := make(chan error, 1)
	go func() { hostErr <- host.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	printSuccess(stdout, "Serving %s", StyleValue.Render(w.Document().ID))
	printDetail(stdout, "layout   %s", StyleLink.Render("http://"+ln.Addr().String()+"/layout"))
	if opts.metrics {
		printDetail(stdout, "metrics  %s", StyleLink.Render("http://"+ln.Addr().String()+"/metrics"))
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !stderrors.Is(err, http.ErrServerClosed) {
			cancel()
			<-hostErr
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("shutdown", "err", err)
	}
	cancel()
	<-hostErr
	printInfo(stdout, "Stopped")
	return ctx.Err()
}
