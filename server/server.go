package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda/eval"
	"github.com/polterguy/magic.endpoint-sub000/server/config"
)

// Server owns the HTTP transport around the dispatcher: routing, logging,
// compression, static serving, the meta-data endpoint and graceful shutdown.
type Server struct {
	config     *config.Config
	logger     zerolog.Logger
	mux        *http.ServeMux
	server     *http.Server
	dispatcher *Dispatcher
	reflector  *Reflector
	mimes      *MimeMap
	evalLog    *EvalLog
	watcher    *Watcher
	registry   *eval.Registry
}

// New creates a server from configuration. stdout receives the log stream.
func New(cfg *config.Config, stdout io.Writer) (*Server, error) {
	logger := newLogger(cfg.Logging, stdout)

	var evalLog *EvalLog
	if cfg.EvalLog.Enabled {
		var err error
		evalLog, err = OpenEvalLog(cfg.EvalLog.Path)
		if err != nil {
			return nil, fmt.Errorf("opening eval log: %w", err)
		}
	}

	fs := files.OS{}
	registry := eval.NewRegistry()
	dispatcher := NewDispatcher(cfg.Files.Root, fs, registry, logger, evalLog)

	s := &Server{
		config:     cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		dispatcher: dispatcher,
		reflector:  NewReflector(cfg.Files.Root, fs),
		mimes:      NewMimeMap(),
		evalLog:    evalLog,
		registry:   registry,
	}
	s.setupRoutes(fs)
	return s, nil
}

// Registry exposes the slot registry so embedders can add slots at startup.
func (s *Server) Registry() *eval.Registry { return s.registry }

// Reflector exposes the meta-data reflector so embedders can register
// classifiers at startup.
func (s *Server) Reflector() *Reflector { return s.reflector }

// MimeTypes exposes the static-serving MIME table.
func (s *Server) MimeTypes() *MimeMap { return s.mimes }

func (s *Server) setupRoutes(fs files.Provider) {
	s.mux.Handle(apiPrefix+"/system/endpoints", &endpointsHandler{reflector: s.reflector, logger: s.logger})
	s.mux.Handle(apiPrefix+"/", &apiHandler{
		dispatcher: s.dispatcher,
		tokens:     s.config.Auth.Tokens,
		logger:     s.logger,
	})

	if s.config.Server.Dev {
		s.mux.HandleFunc(apiPrefix+"/system/dev/changes", func(w http.ResponseWriter, r *http.Request) {
			seq := uint64(0)
			if s.watcher != nil {
				seq = s.watcher.Sequence()
			}
			w.Header().Set("Content-Type", jsonContentType)
			json.NewEncoder(w).Encode(map[string]uint64{"sequence": seq})
		})
	}

	if s.config.Static.Root != "" {
		executor := NewExecutor(eval.New(s.registry))
		s.mux.Handle("/", newStaticHandler(s.config.Static.Root, fs, s.mimes, executor, s.logger))
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = newCompressionHandler(h, s.config.Compression)
	h = newRequestLogger(h, s.logger)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprintf("%d", s.config.Server.Port))
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.Server.Dev {
		watcher, err := NewWatcher(s.config.Files.Root, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("file watcher unavailable")
		} else {
			s.watcher = watcher
			watcher.Start(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("host", hostname()).Msg("listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		s.evalLog.Close()
		return err
	case err := <-errCh:
		s.evalLog.Close()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
