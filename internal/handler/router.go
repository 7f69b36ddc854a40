package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mrhud/internal/metrics"
	"github.com/hitoshi/mrhud/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// レンダーパス
	PassRunner     PassRunner
	PassStore      PassStore
	MaxRowsPerPass int

	// 観測
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → CORSMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	passHandler := NewPassHandler(deps.PassRunner, deps.PassStore, deps.MaxRowsPerPass)

	// --- 運用系のルート（レート制限の外） ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- レンダーパスAPI ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/api/passes", func(r chi.Router) {
			r.Post("/", passHandler.CreatePass)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", passHandler.GetPass)
				r.Post("/filter", passHandler.FilterPass)
			})
		})
	})

	return r
}
