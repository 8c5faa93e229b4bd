package api

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vocdoni/davinci-dao/log"
)

// DisabledLogging is a global flag to disable logging middleware
var DisabledLogging = false

var (
	// jsonRegex matches common JSON starting patterns
	jsonRegex = regexp.MustCompile(`^\s*[\[{]`)
	// longHexRegex matches hex strings long enough to be proofs or keys
	longHexRegex = regexp.MustCompile(`0x([0-9a-fA-F]{16})[0-9a-fA-F]{48,}`)
)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	MaxBodyLog       int
	ExcludedPrefixes []string // URL path prefixes to exclude from logging
}

func (lc LoggingConfig) shouldSkipLogging(r *http.Request) bool {
	if DisabledLogging || log.Level() != log.LogLevelDebug {
		return true
	}
	for _, prefix := range lc.ExcludedPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// compactBody prepares a JSON body for the logs: proofs, keys and signatures
// are shortened and the result is truncated to max bytes.
func compactBody(body []byte, max int) string {
	if !jsonRegex.Match(body) {
		return ""
	}
	s := longHexRegex.ReplaceAllString(string(body), "0x$1...")
	s = strings.ReplaceAll(s, "\"", "")
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// loggingMiddleware logs requests and responses at debug level.
func loggingMiddleware(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.shouldSkipLogging(r) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()

			var body string
			if r.Body != nil && r.ContentLength > 0 {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					log.Error(err)
					http.Error(w, "unable to read request body", http.StatusInternalServerError)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(data))
				body = compactBody(data, config.MaxBodyLog)
			}

			wrapped := &responseWriter{ResponseWriter: w}
			log.Debugw("api request", "method", r.Method, "url", r.URL.String(), "body", body)
			next.ServeHTTP(wrapped, r)
			log.Debugw("api response",
				"method", r.Method,
				"url", r.URL.String(),
				"status", wrapped.statusCode,
				"took", time.Since(start).String(),
			)
		})
	}
}
