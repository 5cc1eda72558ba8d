package middleware

import (
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"arena-breakout-backend/pkg/config"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger 创建日志中间件
// 开发环境使用Chi的默认彩色日志，生产环境输出结构化日志
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	if !cfg.IsProduction() {
		return devLogger(os.Stdout)
	}
	return StructuredLogger(slog.Default())
}

func devLogger(out io.Writer) func(http.Handler) http.Handler {
	return middleware.RequestLogger(redactingFormatter{
		&middleware.DefaultLogFormatter{Logger: log.New(out, "", log.LstdFlags)},
	})
}

// redactingFormatter hides the websocket access_token query parameter from the access log.
// Only the logged copy is changed, handlers still see the original URL.
type redactingFormatter struct {
	middleware.LogFormatter
}

func (f redactingFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	if r.URL.Query().Has(accessTokenParam) {
		logged := r.WithContext(r.Context())
		logged.RequestURI = redactedRequestURI(r.URL)
		r = logged
	}
	return f.LogFormatter.NewLogEntry(r)
}

func redactedRequestURI(u *url.URL) string {
	q := u.Query()
	if q.Has(accessTokenParam) {
		q.Set(accessTokenParam, "REDACTED")
	}
	if len(q) == 0 {
		return u.EscapedPath()
	}
	return u.EscapedPath() + "?" + q.Encode()
}

// StructuredLogger 结构化访问日志
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 创建响应写入器包装器来捕获状态码
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("ip", r.RemoteAddr),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
