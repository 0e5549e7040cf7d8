package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vbind/pkg/live"
	"github.com/vango-dev/vbind/pkg/metrics"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		in    inputs
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a bound template live",
		Long: `Serve a bound template over HTTP. Browsers forward their events over a
websocket; every change is rendered on the server and pushed back.

With --watch the template and data files are re-read whenever they change
and connected browsers reload.

Examples:
  vbind serve -t page.html -d data.json
  vbind serve --watch --port=8080 --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			if port > 0 {
				cfg.Live.Port = port
			}
			if host != "" {
				cfg.Live.Host = host
			}

			var rec metrics.Recorder
			opts := live.Options{SocketPath: cfg.Live.Path, Logger: logger}
			if cfg.Metrics.Enabled {
				rec = metrics.NewPrometheus(metrics.WithNamespace(cfg.Metrics.Namespace))
				opts.MetricsPath = cfg.Metrics.Path
				opts.Metrics = rec
			}

			b, err := bindFiles(cmd.Context(), cfg, in, logger, rec)
			if err != nil {
				return err
			}
			srv := live.New(opts)
			page := live.NewPage("/", b.doc, b.queue, b.globals)
			srv.Handle("/", page)

			printBanner(cmd)
			success(cmd, "Serving on http://%s", cfg.LiveAddress())
			if cfg.Metrics.Enabled {
				info(cmd, "Metrics at http://%s%s", cfg.LiveAddress(), cfg.Metrics.Path)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				files := in.resolve(cfg)
				w := live.NewWatcher(0, files.template, files.data)
				w.OnChange(func(changed []string) {
					nb, err := bindFiles(ctx, cfg, in, logger, rec)
					if err != nil {
						logger.Error("rebind failed", "files", changed, "error", err)
						return
					}
					page.Swap(nb.doc, nb.queue, nb.globals)
					srv.Reload(page)
					logger.Info("reloaded", "files", changed)
				})
				go w.Run(ctx)
				info(cmd, "Watching %s", files.template)
			}

			return srv.ListenAndServe(ctx, cfg.LiveAddress())
		},
	}

	cmd.Flags().StringVarP(&in.template, "template", "t", "", "Template file (default from vbind.json)")
	cmd.Flags().StringVarP(&in.data, "data", "d", "", "JSON data file (default from vbind.json)")
	cmd.Flags().BoolVar(&in.assign, "assign", false, "Read server-rendered content into the data instead of rendering")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from vbind.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from vbind.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the template or data file changes")

	return cmd
}
