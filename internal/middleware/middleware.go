package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/internal/auth"
	"github.com/jmartynas/socials/respond"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	RealIPKey        contextKey = "real_ip"
	SessionClaimsKey contextKey = "session_claims"
)

type responseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func GetRealIP(ctx context.Context) string {
	if ip, ok := ctx.Value(RealIPKey).(string); ok {
		return ip
	}
	return ""
}

// RequireSession rejects requests without a valid session cookie and puts
// the session claims in the context.
func RequireSession(jwtSecret string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.GetSession(r, jwtSecret)
			if err != nil {
				log.WithError(err).
					WithField("request_id", GetRequestID(r.Context())).
					WithField("path", r.URL.Path).
					Warn("auth failed: missing or invalid session")
				respond.Unauthorized("unauthorized").Respond(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), SessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(SessionClaimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

func Logger(log logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start),
				"request_id": GetRequestID(r.Context()),
				"client_ip":  GetRealIP(r.Context()),
			}).Info("request")
		})
	}
}

func Recoverer(log logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithField("error", err).
						WithField("stack", string(debug.Stack())).
						Error("panic recovered")
					respond.InternalServerError("internal server error").Respond(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func RealIPWith(trustedNetworks []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ""

			remoteIP, _, _ := net.SplitHostPort(r.RemoteAddr)
			if isTrustedProxy(remoteIP, trustedNetworks) {
				if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
					ip = strings.TrimSpace(xrip)
				} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
					ip = strings.TrimSpace(strings.Split(xff, ",")[0])
				}
			}

			if ip == "" {
				ip = remoteIP
			}

			ctx := context.WithValue(r.Context(), RealIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseTrustedProxyCIDRs parses a comma-separated list of CIDRs. Returns an error if any entry is invalid.
func ParseTrustedProxyCIDRs(csv string) ([]*net.IPNet, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	var out []*net.IPNet
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %q: %w", s, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func isTrustedProxy(remoteIP string, networks []*net.IPNet) bool {
	if len(networks) == 0 {
		return false
	}
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return false
	}
	for _, n := range networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// NoCache keeps login redirects and session responses out of caches.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
