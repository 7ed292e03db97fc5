package httpx

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/target/adsync/internal/adapters/oidc"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			}
			if ww.ctx != nil {
				if c, ok := CallerFromContext(ww.ctx); ok {
					attrs = append(attrs, slog.String("caller", c.Method+":"+c.Subject))
				}
			}
			logger.InfoContext(r.Context(), "http", attrs...)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
	// ctx is the request context seen by the innermost handler that set a caller.
	ctx context.Context
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier verifies OIDC ID tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (oidc.Identity, error)
}

// AutomationAuth configures RequireAutomation.
type AutomationAuth struct {
	// Tokens are static shared secrets accepted as bearer tokens.
	Tokens []string
	// Verifier, when set, accepts OIDC ID tokens as bearer tokens.
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// AutomationTokenHeader is accepted in place of an Authorization bearer token.
const AutomationTokenHeader = "X-Automation-Token"

// RequireAutomation returns a middleware that admits callers presenting a static
// automation token or a verified ID token. Missing or invalid credentials get 401;
// a verified token whose subject is not allowed gets 403.
func RequireAutomation(auth AutomationAuth) func(http.Handler) http.Handler {
	logger := auth.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens := make([][]byte, 0, len(auth.Tokens))
	for _, t := range auth.Tokens {
		if t != "" {
			tokens = append(tokens, []byte(t))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(tokens) == 0 && auth.Verifier == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "automation_disabled",
					Err:     errors.New("automation credentials are not configured"),
				})
				return
			}

			raw := credential(r)
			if raw == "" {
				writeUnauthorized(w, errors.New("automation credential required"))
				return
			}

			caller, err := authenticate(r.Context(), raw, tokens, auth.Verifier)
			switch {
			case errors.Is(err, oidc.ErrSubjectNotAllowed):
				logger.WarnContext(r.Context(), "automation caller not allowed", "error", err)
				WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: oidc.ErrSubjectNotAllowed})
				return
			case err != nil:
				logger.InfoContext(r.Context(), "automation credential rejected", "error", err)
				writeUnauthorized(w, errors.New("invalid automation credential"))
				return
			}

			ctx := SetCallerInContext(r.Context(), caller)
			if rw, ok := w.(*respWriter); ok {
				rw.ctx = ctx
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, raw string, tokens [][]byte, verifier TokenVerifier) (Caller, error) {
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(raw), t) == 1 {
			return Caller{Method: "token", Subject: "static"}, nil
		}
	}
	if verifier == nil {
		return Caller{}, errors.New("token does not match")
	}
	id, err := verifier.Verify(ctx, raw)
	if err != nil {
		return Caller{}, err
	}
	return Caller{Method: "oidc", Subject: id.Subject}, nil
}

func credential(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(AutomationTokenHeader)); v != "" {
		return v
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="automation"`)
	WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "unauthorized", Err: err})
}
