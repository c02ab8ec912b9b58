package server

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/polterguy/magic.endpoint-sub000/server/config"
)

// newLogger builds the server's structured logger from config: console or
// JSON format, optional rotated file output.
func newLogger(cfg config.LoggingConfig, stdout io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = stdout
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = zerolog.MultiLevelWriter(out, rotated)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// requestLogger is middleware logging one line per HTTP request.
type requestLogger struct {
	handler http.Handler
	logger  zerolog.Logger
}

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	status int
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	return rc.ResponseWriter.Write(b)
}

func newRequestLogger(handler http.Handler, logger zerolog.Logger) *requestLogger {
	return &requestLogger{handler: handler, logger: logger}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rc := &responseCapture{ResponseWriter: w}
	rl.handler.ServeHTTP(rc, r)

	clientIP := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP = xff
	}
	rl.logger.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rc.status).
		Dur("duration", time.Since(start)).
		Str("client", clientIP).
		Msg("request")
}

// hostname is logged at startup; failures are harmless.
func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
