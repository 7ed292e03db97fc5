package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Ops    OperationExecutor // Required
	Events EventLister       // Required
	Auth   AutomationAuth

	// Readiness checks run by GET /readyz, keyed by dependency name.
	Readiness map[string]ReadinessCheck

	// MaxBodyBytes bounds request bodies; zero disables the limit.
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewRouter creates the automation API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if services.Auth.Logger == nil {
		services.Auth.Logger = logger
	}

	mux := http.NewServeMux()
	h := &AutomationHandlers{
		Ops:    services.Ops,
		Events: services.Events,
		Logger: logger.With("component", "automation_http"),
	}
	protect := RequireAutomation(services.Auth)
	limit := func(next http.HandlerFunc) http.Handler {
		return protect(maxBody(services.MaxBodyBytes, next))
	}

	mux.Handle("POST /api/automation/dispatch", limit(h.Dispatch))
	mux.Handle("POST /api/automation/schedule", limit(h.Schedule))
	mux.Handle("POST /api/automation/housekeeping", limit(h.Housekeeping))
	mux.Handle("GET /api/automation/events", protect(http.HandlerFunc(h.ListEvents)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Readiness))

	return Recover(logger)(Logging(logger)(mux))
}

func maxBody(n int64, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		next.ServeHTTP(w, r)
	})
}
