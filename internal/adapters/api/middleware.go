package api

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
	"github.com/poyrazK/gatekeep/internal/infrastructure/metrics"
)

type contextKey string

const (
	CtxUserID contextKey = "user_id"
	CtxRole   contextKey = "role"
	ctxAudit  contextKey = "audit"
)

// auditState is shared down the middleware chain through the request
// context. Inner middleware fills in what it learns (identity, errors);
// the audit middleware reads it back after the response is written.
type auditState struct {
	UserID *string
	Error  string
}

// statusRecorder captures the status code and a truncated copy of the
// response body for the audit trail.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.body.Len() < domain.BodyCaptureLimit {
		remain := domain.BodyCaptureLimit - w.body.Len()
		if remain > len(b) {
			remain = len(b)
		}
		w.body.Write(b[:remain])
	}
	return w.ResponseWriter.Write(b)
}

// ClientIP resolves the request identifier: first X-Forwarded-For hop
// when present, else the remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuditMiddleware is the outermost layer: every request that enters it
// produces exactly one audit entry, whether it was rejected by the rate
// limiter, by authentication, or handled normally. The write happens
// after the response is finalized and can never fail the request.
func AuditMiddleware(recorder ports.AuditRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var reqBody string
			if r.Body != nil {
				captured, err := io.ReadAll(io.LimitReader(r.Body, domain.BodyCaptureLimit))
				if err == nil {
					reqBody = string(captured)
					r.Body = struct {
						io.Reader
						io.Closer
					}{io.MultiReader(bytes.NewReader(captured), r.Body), r.Body}
				}
			}

			state := &auditState{}
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxAudit, state)))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			elapsed := time.Since(start)

			metrics.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
			metrics.RequestDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())

			recorder.Record(&domain.RequestLog{
				Endpoint:     r.URL.Path,
				Method:       r.Method,
				Identifier:   ClientIP(r),
				UserID:       state.UserID,
				Status:       rec.status,
				LatencyMs:    elapsed.Milliseconds(),
				RequestBody:  domain.Truncate(reqBody),
				ResponseBody: rec.body.String(),
				Error:        state.Error,
			})
		})
	}
}

// RateLimitMiddleware gates admission before authentication runs. The
// identifier is the client IP since no identity has been resolved yet.
func RateLimitMiddleware(limiter ports.RateLimitService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.CheckAndIncrement(r.Context(), ClientIP(r), r.URL.Path, time.Now())
			if err != nil {
				setAuditError(r, err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !decision.Allowed {
				metrics.RateLimitRejections.WithLabelValues(r.URL.Path).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter/time.Second)))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware resolves the bearer credential. Every failure mode is
// reported with the same message and status.
func AuthMiddleware(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				metrics.AuthFailures.Inc()
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := auth.Authenticate(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				metrics.AuthFailures.Inc()
				setAuditError(r, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if state, ok := r.Context().Value(ctxAudit).(*auditState); ok {
				id := identity.UserID
				state.UserID = &id
			}

			ctx := context.WithValue(r.Context(), CtxUserID, identity.UserID)
			ctx = context.WithValue(ctx, CtxRole, identity.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on the authenticated role.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(CtxRole).(domain.Role)
			if !ok {
				http.Error(w, "Forbidden: role not found in context", http.StatusForbidden)
				return
			}

			allowed := false
			for _, want := range roles {
				if want == role {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setAuditError records server-side failure detail for the audit row;
// it is never echoed to the client.
func setAuditError(r *http.Request, err error) {
	if state, ok := r.Context().Value(ctxAudit).(*auditState); ok && err != nil {
		state.Error = err.Error()
	}
}
