package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/vango-dev/vbind/internal/config"
	"github.com/vango-dev/vbind/internal/errors"
	"github.com/vango-dev/vbind/pkg/component"
	"github.com/vango-dev/vbind/pkg/dom"
	"github.com/vango-dev/vbind/pkg/metrics"
	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

// loadConfig reads vbind.json and applies the global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if flags.mode != "" {
		cfg.Mode = flags.mode
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// inputs names the files a command binds.
type inputs struct {
	template string
	data     string
	assign   bool
}

// resolve fills empty paths from the config.
func (in inputs) resolve(cfg *config.Config) inputs {
	if in.template == "" {
		in.template = cfg.ResolvePath(cfg.Template)
	}
	if in.data == "" && cfg.Data != "" {
		in.data = cfg.ResolvePath(cfg.Data)
	}
	return in
}

// binding is a parsed template bound to its data, fully initialised.
type binding struct {
	doc     *dom.Document
	queue   *reactive.Queue
	globals *component.Globals
	comp    *component.Component
}

func bindFiles(ctx context.Context, cfg *config.Config, in inputs, logger *slog.Logger, rec metrics.Recorder) (*binding, error) {
	in = in.resolve(cfg)
	if in.template == "" {
		return nil, errors.New(errors.CodeInvalidInput).WithDetail("no template given (use --template or set \"template\" in vbind.json)")
	}

	f, err := os.Open(in.template)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput).WithDetailf("cannot read template %q", in.template).Wrap(err)
	}
	defer f.Close()
	doc, err := dom.Parse(f)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput).WithDetailf("cannot parse template %q", in.template).Wrap(err)
	}

	data := state.NewObject()
	if in.data != "" {
		raw, err := os.ReadFile(in.data)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidInput).WithDetailf("cannot read data %q", in.data).Wrap(err)
		}
		if data, err = state.ObjectFromJSON(raw); err != nil {
			return nil, errors.New(errors.CodeInvalidInput).WithDetailf("data %q must be a JSON object", in.data).Wrap(err)
		}
	}

	b := &binding{
		doc:     doc,
		queue:   reactive.NewQueue(),
		globals: component.NewGlobals(),
	}
	b.comp, err = component.New(component.Options{
		Name:     "page",
		Document: doc,
		Root:     doc.Body(),
		Data:     data,
		Assign:   in.assign,
		Mode:     reactive.ParseMode(cfg.Mode),
		Queue:    b.queue,
		Globals:  b.globals,
		Logger:   logger,
		Metrics:  rec,
	})
	if err != nil {
		return nil, err
	}
	if err := b.queue.Drain(); err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "template bound", "template", in.template, "data", in.data, "assign", in.assign)
	return b, nil
}

// setup loads config and logger for a command.
func setup(flags *globalFlags, stderr io.Writer) (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}
