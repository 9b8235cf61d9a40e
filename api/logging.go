package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"
)

// streamInfo collects what a handler learned about the request so the access
// log line can carry it.
type streamInfo struct {
	animation string
	session   string
}

type streamInfoKey struct{}

// annotateStream records the animation and session served by the request.
func annotateStream(ctx context.Context, animation, session string) {
	if info, ok := ctx.Value(streamInfoKey{}).(*streamInfo); ok {
		info.animation = animation
		info.session = session
	}
}

// streamRecorder counts status, bytes and flushed buffers. Every frame is
// flushed once, so flushes approximate frames delivered.
type streamRecorder struct {
	http.ResponseWriter
	status  int
	bytes   int64
	flushes int
}

func (r *streamRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *streamRecorder) Flush() {
	r.flushes++
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := pslog.Ctx(r.Context()).With("request", uuid.NewString(), "remote", clientIP(r))
		info := new(streamInfo)
		ctx := context.WithValue(pslog.ContextWithLogger(r.Context(), log), streamInfoKey{}, info)

		rec := &streamRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{"method", r.Method, "path", r.URL.RequestURI(), "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds()}
		if info.animation != "" {
			fields = append(fields, "animation", info.animation, "session", info.session, "flushes", rec.flushes)
		}
		log.Info("http request", fields...)
	})
}

// clientIP prefers proxy headers and drops the port from the peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
