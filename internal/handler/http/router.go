package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/tenant"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

func NewRouter(
	tenantRepo tenant.Repository,
	punchHandler PunchHandler,
	overtimeHandler OvertimeHandler,
	recoveryHandler RecoveryHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "pointaflex"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Actor-Role"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantRequired(tenantRepo))

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/punch-in", punchHandler.PunchIn)
			r.Post("/punch-out", punchHandler.PunchOut)
			r.Get("/anomalies", punchHandler.ListAnomalies)
			r.Post("/anomalies/{eventID}/correct", punchHandler.CorrectAnomaly)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Post("/{entryID}/approve", overtimeHandler.Approve)
			r.Post("/{entryID}/reject", overtimeHandler.Reject)
		})

		r.Route("/recovery-days", func(r chi.Router) {
			r.Post("/convert", recoveryHandler.Convert)
			r.Post("/cancel", recoveryHandler.Cancel)
		})
	})

	return r
}
