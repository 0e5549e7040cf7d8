package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/vango-dev/vbind/internal/config"
	"github.com/vango-dev/vbind/internal/errors"
)

// newLogger builds the CLI logger: text records on w and, when a log file
// is configured, JSON records appended to it. The returned closer releases
// the file.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(w, opts)}
	closer := func() error { return nil }

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.ResolvePath(cfg.Log.File), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, errors.New(errors.CodeConfigInvalid).
				WithDetailf("cannot open log file %q", cfg.Log.File).
				Wrap(err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closer = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
