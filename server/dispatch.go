package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda/eval"
)

// Dispatcher is the request pipeline: resolve the endpoint file, parse it
// fresh, weave in ancestor interceptors, bind arguments, execute. Scripts are
// parsed per dispatch and discarded; there is deliberately no cross-request
// script cache, which keeps concurrent dispatches lock-free in this
// subsystem.
type Dispatcher struct {
	fs       files.Provider
	resolver *Resolver
	composer *Composer
	binder   Binder
	executor *Executor
	logger   zerolog.Logger
	evalLog  *EvalLog
}

// NewDispatcher wires the pipeline over a files root. evalLog may be nil.
func NewDispatcher(root string, fs files.Provider, reg *eval.Registry, logger zerolog.Logger, evalLog *EvalLog) *Dispatcher {
	registerSlots(reg, logger)
	return &Dispatcher{
		fs:       fs,
		resolver: NewResolver(root, fs),
		composer: NewComposer(root, fs),
		executor: NewExecutor(eval.New(reg)),
		logger:   logger,
		evalLog:  evalLog,
	}
}

// Dispatch runs one request through the pipeline and returns the response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()
	res, err := d.dispatch(ctx, req)
	d.record(req, res, err, time.Since(started))
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) (*Response, error) {
	path, err := d.resolver.Resolve(req.URL, req.Verb)
	if err != nil {
		return nil, err
	}
	script, err := d.load(path)
	if err != nil {
		return nil, err
	}
	script, err = d.composer.Apply(script, path)
	if err != nil {
		return nil, err
	}
	if err := d.binder.Bind(script, req.Query, req.Payload); err != nil {
		return nil, err
	}
	return d.executor.Execute(ctx, script, req)
}

// load reads and parses one script file.
func (d *Dispatcher) load(path string) (*lambda.Node, error) {
	src, err := d.fs.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	script, err := lambda.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return script, nil
}

func (d *Dispatcher) record(req *Request, res *Response, err error, elapsed time.Duration) {
	status := 0
	if res != nil {
		status = res.Status
	}
	event := d.logger.Debug()
	message := ""
	if err != nil {
		event = d.logger.Warn()
		message = err.Error()
	}
	event.Str("url", req.URL).Str("verb", req.Verb).Int("status", status).
		Dur("elapsed", elapsed).Msg("dispatch")
	if d.evalLog != nil {
		d.evalLog.Record(req.URL, req.Verb, status, elapsed, message)
	}
}
