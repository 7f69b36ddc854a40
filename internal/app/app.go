package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/mrhud/internal/config"
	"github.com/hitoshi/mrhud/internal/gitlab"
	"github.com/hitoshi/mrhud/internal/handler"
	"github.com/hitoshi/mrhud/internal/logger"
	"github.com/hitoshi/mrhud/internal/metrics"
	"github.com/hitoshi/mrhud/internal/middleware"
	"github.com/hitoshi/mrhud/internal/registry"
	"github.com/hitoshi/mrhud/internal/renderpass"
	"github.com/hitoshi/mrhud/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_FORMAT"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("gitlab_base_url", cfg.GitLabBaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// GitLabクライアントとレンダーパスの全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 2. セキュリティサービスの初期化
	// SSRFガード有効時は内部ネットワーク宛のリクエストをトランスポート層で遮断する
	var httpClient *http.Client
	if cfg.SSRFGuardEnabled {
		guard := security.NewSSRFGuard()
		if err := guard.ValidateURL(cfg.GitLabBaseURL); err != nil {
			return fmt.Errorf("GitLab base URL rejected by SSRF guard: %w", err)
		}
		httpClient = guard.NewSafeClient(cfg.FetchTimeout)
	} else {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	sanitizer := security.NewAuthorSanitizer()

	// 3. GitLabクライアントの初期化
	gitlabClient := gitlab.NewClient(
		gitlab.ClientConfig{
			BaseURL:        cfg.GitLabBaseURL,
			Token:          cfg.GitLabToken,
			RequestsPerSec: cfg.GitLabRequestsPerSec,
			Burst:          cfg.GitLabBurst,
		},
		httpClient, sanitizer, collector, slog.Default(),
	)

	// 4. レンダーパスの調整役とパスレジストリの初期化
	coordinator := renderpass.NewCoordinator(
		gitlabClient, collector, slog.Default(), cfg.EnrichMaxConcurrent,
	)

	store := registry.NewStore(slog.Default())
	store.TTL = cfg.PassTTL

	// 5. ルーターの構築
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		PassRunner:     coordinator,
		PassStore:      store,
		MaxRowsPerPass: cfg.MaxRowsPerPass,

		Gatherer: reg,
		Logger:   slog.Default(),

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
	})

	// 6. 期限切れパスのスイーパーをバックグラウンドで起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.RunSweeper(ctx, 0)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
