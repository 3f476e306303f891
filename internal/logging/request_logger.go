package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestRecord captures one proxied dashboard request and its outcome for
// the detailed request log. Bodies are stored verbatim; callers must mask
// credentials before handing them over.
type RequestRecord struct {
	RequestID  string              `json:"request_id,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
	Method     string              `json:"method"`
	URL        string              `json:"url"`
	Status     int                 `json:"status"`
	LatencyMS  int64               `json:"latency_ms"`
	ClientIP   string              `json:"client_ip,omitempty"`
	ReqHeaders map[string][]string `json:"request_headers,omitempty"`
	ReqBody    json.RawMessage     `json:"request_body,omitempty"`
	RespBody   json.RawMessage     `json:"response_body,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// RequestLogger records detailed request/response data for dashboard API calls.
// Implementations must be safe for concurrent use.
type RequestLogger interface {
	// IsEnabled reports whether full request logging is active. When false,
	// callers may still submit records for failed requests.
	IsEnabled() bool
	// Log writes a single request record.
	Log(record *RequestRecord)
}

// FileRequestLogger appends JSON-line request records to request.log in the
// resolved log directory, rotating through lumberjack.
type FileRequestLogger struct {
	mu      sync.Mutex
	writer  *lumberjack.Logger
	enabled bool
}

// NewFileRequestLogger creates a request logger rooted at the config's log directory.
func NewFileRequestLogger(cfg *config.Config) *FileRequestLogger {
	logDir := ResolveLogDirectory(cfg)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.WithError(err).Warn("request logger: failed to create log directory")
	}
	return &FileRequestLogger{
		writer: &lumberjack.Logger{
			Filename: filepath.Join(logDir, "request.log"),
			MaxSize:  10,
		},
		enabled: cfg.RequestLog,
	}
}

// IsEnabled reports whether full request logging is active.
func (l *FileRequestLogger) IsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetEnabled toggles full request logging, used by config hot reload.
func (l *FileRequestLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Log writes a single request record as one JSON line.
func (l *FileRequestLogger) Log(record *RequestRecord) {
	if record == nil {
		return
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	raw, err := json.Marshal(record)
	if err != nil {
		log.WithError(err).Warn("request logger: failed to marshal record")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err = fmt.Fprintf(l.writer, "%s\n", raw); err != nil {
		log.WithError(err).Warn("request logger: write failed")
	}
}

// Close flushes and closes the underlying writer.
func (l *FileRequestLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.Close()
}
