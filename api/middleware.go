package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stackernews/oauthd/sanitize"
)

// loggerMiddleware writes one access log line per request once it completed,
// server errors are logged at error level and client errors at warn level.
// Query strings are left out, they carry codes and state.
func loggerMiddleware(l *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			defer func() {
				level := zapcore.InfoLevel
				switch {
				case ww.Status() >= http.StatusInternalServerError:
					level = zapcore.ErrorLevel
				case ww.Status() >= http.StatusBadRequest:
					level = zapcore.WarnLevel
				}
				if ce := l.Check(level, r.Method+" "+sanitize.NoLineBreaks(r.URL.Path)); ce != nil {
					ce.Write(
						zap.String("proto", r.Proto),
						sanitize.UserInputString("path", r.URL.Path),
						zap.String("remote", r.RemoteAddr),
						sanitize.UserInputString("user_agent", r.UserAgent()),
						zap.Duration("latency", time.Since(started)),
						zap.Int("status", ww.Status()),
						zap.Int("size", ww.BytesWritten()),
						zap.String("request_id", middleware.GetReqID(r.Context())))
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
