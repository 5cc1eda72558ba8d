// Package server wires configuration, storage and services into an HTTP router.
package server

import (
	"net/http"
	"time"

	"arena-breakout-backend/pkg/config"
	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/handlers"
	"arena-breakout-backend/pkg/livekit"
	customMiddleware "arena-breakout-backend/pkg/middleware"
	"arena-breakout-backend/pkg/realtime"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// Vercel函数有时间限制，留5秒缓冲
	requestTimeout = 25 * time.Second
	maxBodyBytes   = 1 << 20
)

// App holds the services behind the HTTP surface.
type App struct {
	Config      *config.Config
	DB          database.DatabaseInterface
	Broker      realtime.Broker
	JWT         *utils.JWTService
	Users       *services.UserService
	Arena       *services.ArenaService
	Breakout    *services.BreakoutService
	Tokens      *services.TokenService
	Transcripts *services.TranscriptService
}

// NewApp 组装所有服务
func NewApp(cfg *config.Config, db database.DatabaseInterface, broker realtime.Broker) *App {
	issuer := livekit.NewTokenIssuer(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitTokenTTL)

	var opts []services.Option
	if cfg.LiveKitConfigured() {
		rooms := livekit.NewRoomClient(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
		opts = append(opts, services.WithJanitor(services.NewRoomJanitor(rooms)))
	}

	arena := services.NewArenaService(db)
	return &App{
		Config:      cfg,
		DB:          db,
		Broker:      broker,
		JWT:         utils.NewJWTService(cfg.JWTSecret),
		Users:       services.NewUserService(db),
		Arena:       arena,
		Breakout:    services.NewBreakoutService(db, broker, opts...),
		Tokens:      services.NewTokenService(db, issuer, arena, cfg.LiveKitURL),
		Transcripts: services.NewTranscriptService(db),
	}
}

// NewRouter 创建Chi路由器
func NewRouter(app *App) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, app.Config)
	setupRoutes(router, app)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, app *App) {
	cfg := app.Config

	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, app.DB, app.JWT)
	userHandler := handlers.NewUserHandler(app.Users)
	arenaHandler := handlers.NewArenaHandler(app.Arena, app.Tokens)
	breakoutHandler := handlers.NewBreakoutHandler(app.Breakout, app.Tokens)
	transcriptHandler := handlers.NewTranscriptHandler(app.Transcripts)
	watchHandler := handlers.NewWatchHandler(app.Breakout, app.Broker, cfg.AllowedOrigins)

	requireAuth := customMiddleware.AuthMiddleware(app.JWT, app.Users)
	optionalAuth := customMiddleware.OptionalAuthMiddleware(app.JWT, app.Users)

	// 健康检查端点
	router.Get("/", authHandler.Root)

	// WebSocket 长连接不经过超时与压缩中间件
	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/api/breakout/rooms/{roomId}/watch", watchHandler.WatchRoom)
		r.Get("/api/breakout/invitations/watch", watchHandler.WatchInvitations)
	})

	// API路由组
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.Compress(5))
		r.Use(customMiddleware.ContentTypeJSON)
		r.Use(customMiddleware.MaxBodySize(maxBodyBytes))

		// 公开路由（不需要认证）
		r.Get("/api/health", authHandler.HealthCheck)
		r.Post("/api/auth/refresh", authHandler.RefreshToken)
		r.With(optionalAuth).Post("/api/livekit/arena-token", arenaHandler.ArenaToken)
		r.With(customMiddleware.CronSecret(cfg.CronSecret)).Post("/api/cron/sweep-invitations", breakoutHandler.Sweep)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/api/me", authHandler.Me)

			// 用户目录
			r.Get("/api/users", userHandler.ListUsers)
			r.Post("/api/users", userHandler.CreateUser)
			r.Put("/api/users/{id}/role", userHandler.UpdateRole)

			// 竞技场
			r.Get("/api/arena", arenaHandler.GetArena)
			r.Post("/api/arena", arenaHandler.CreateArena)
			r.Post("/api/arena/{id}/touch", arenaHandler.Touch)
			r.Get("/api/rooms/{id}", arenaHandler.GetRoom)
			r.Post("/api/livekit/token", arenaHandler.IssueToken)

			// 分组讨论邀请
			r.Post("/api/breakout/invitations", breakoutHandler.CreateInvitation)
			r.Get("/api/breakout/invitations/pending", breakoutHandler.ListPending)
			r.Get("/api/breakout/invitations/sent", breakoutHandler.ListSent)
			r.Post("/api/breakout/invitations/sweep", breakoutHandler.Sweep)
			r.Get("/api/breakout/invitations/{id}", breakoutHandler.GetInvitation)
			r.Post("/api/breakout/invitations/{id}/respond", breakoutHandler.Respond)
			r.Post("/api/breakout/invitations/{id}/ongoing", breakoutHandler.MarkOngoing)

			// 分组讨论房间
			r.Get("/api/breakout/rooms/{roomId}/exists", breakoutHandler.RoomExists)
			r.Get("/api/breakout/rooms/{roomId}/participants", breakoutHandler.RoomParticipants)
			r.Post("/api/breakout/rooms/{roomId}/token", breakoutHandler.RoomToken)
			r.Post("/api/breakout/rooms/{roomId}/complete", breakoutHandler.CompleteRoom)
			r.Delete("/api/breakout/rooms/{roomId}/external", breakoutHandler.DeleteExternalRoom)

			// 字幕
			r.Get("/api/transcripts/{roomId}", transcriptHandler.List)
			r.Post("/api/transcripts/{roomId}", transcriptHandler.Add)
			r.Post("/api/transcripts/{roomId}/archive", transcriptHandler.Archive)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, "Route not found")
	})
}
