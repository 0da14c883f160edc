package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ignitecall/internal/metrics"
	"github.com/hitoshi/ignitecall/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// メトリクス公開（nilの場合は/metricsを提供しない）
	MetricsGatherer prometheus.Gatherer
	// HTTPステータスコード別カウンターの記録先（nil可）
	StatusRecorder middleware.HTTPStatusRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService UserServiceInterface
	UserConfig  UserHandlerConfig

	// 予約受付時間帯
	TimeIntervalService TimeIntervalServiceInterface

	// カレンダー連携
	CalendarFactory CalendarFactoryInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery →（/api配下のみ）Session → CSRF → RateLimit
//
// 認証ルート（/auth/*）とユーザー登録（POST /api/users）はセッション必須の
// チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.UserConfig)
	intervalHandler := NewTimeIntervalHandler(deps.TimeIntervalService)
	calendarHandler := NewCalendarHandler(deps.CalendarFactory)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// ユーザー登録（サインアップの最初のステップ。セッション不要）
	// CSRF検証と登録専用レート制限（IP単位）を適用する
	r.With(
		middleware.NewCSRFMiddleware(deps.CSRFConfig),
		deps.RateLimiter.RegistrationMiddleware(),
	).Post("/api/users", userHandler.Register)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 予約受付時間帯
		r.Route("/api/users/time-intervals", func(r chi.Router) {
			r.Post("/", intervalHandler.CreateIntervals)
			r.Get("/", intervalHandler.ListIntervals)
		})

		// ユーザー管理
		r.Delete("/api/users/me", userHandler.Withdraw)

		// カレンダー連携状態
		r.Get("/api/calendar/connection", calendarHandler.Connection)
	})

	return r
}
