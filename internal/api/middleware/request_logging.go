package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/logging"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
)

// maxCapturedBodyBytes bounds how much of a request or response body is
// buffered for the request log.
const maxCapturedBodyBytes int64 = 1 << 20 // 1 MiB

// RequestLoggingMiddleware creates a Gin middleware that records dashboard
// API requests and their responses. When full request logging is disabled,
// only failed requests are recorded.
func RequestLoggingMiddleware(logger logging.RequestLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger == nil || !shouldLogRequest(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		reqBody := captureRequestBody(c)

		capture := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = capture

		c.Next()

		status := c.Writer.Status()
		if !logger.IsEnabled() && status < 400 {
			return
		}

		record := &logging.RequestRecord{
			RequestID: logging.GetGinRequestID(c),
			Timestamp: start,
			Method:    c.Request.Method,
			URL:       maskedURL(c),
			Status:    status,
			LatencyMS: time.Since(start).Milliseconds(),
			ClientIP:  c.ClientIP(),
			ReqBody:   asRawJSON(reqBody),
			RespBody:  asRawJSON(capture.body.Bytes()),
		}
		if len(c.Errors) > 0 {
			record.Error = c.Errors.String()
		}
		logger.Log(record)
	}
}

// shouldLogRequest keeps the request log focused on the analytics API and
// auth flow; everything else is covered by the access log line.
func shouldLogRequest(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/api/auth/")
}

// captureRequestBody reads the request body and restores it for the handler.
// Oversized and multipart payloads are skipped.
func captureRequestBody(c *gin.Context) []byte {
	req := c.Request
	if req.Body == nil || req.ContentLength <= 0 || req.ContentLength > maxCapturedBodyBytes {
		return nil
	}
	contentType := strings.ToLower(strings.TrimSpace(req.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxCapturedBodyBytes))
	if err != nil {
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// maskedURL returns the request path with sensitive query values masked.
func maskedURL(c *gin.Context) string {
	url := c.Request.URL.Path
	if masked := util.MaskSensitiveQuery(c.Request.URL.RawQuery); masked != "" {
		url += "?" + masked
	}
	return url
}

// asRawJSON returns body when it already is valid JSON, otherwise a quoted
// string form so the record stays one well-formed JSON line.
func asRawJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return body
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}

// bodyCaptureWriter tees the response body into a buffer while writing it
// through to the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(data []byte) (int, error) {
	if int64(w.body.Len())+int64(len(data)) <= maxCapturedBodyBytes {
		w.body.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

func (w *bodyCaptureWriter) WriteString(data string) (int, error) {
	return w.Write([]byte(data))
}
