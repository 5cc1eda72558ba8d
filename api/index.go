package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"arena-breakout-backend/pkg/config"
	"arena-breakout-backend/pkg/database"
	"arena-breakout-backend/pkg/logging"
	"arena-breakout-backend/pkg/realtime"
	"arena-breakout-backend/pkg/server"
	"arena-breakout-backend/pkg/utils"
)

var (
	mu       sync.Mutex
	routerDB database.DatabaseInterface
	router   http.Handler
	broker   realtime.Broker
	logOnce  sync.Once
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，所有API端点集中在一个Chi路由器中，warm invocation 之间复用
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg, err := config.GetCached()
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}
	logOnce.Do(func() { logging.Setup(cfg) })

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	h, err := getRouter(r.Context(), cfg)
	if err != nil {
		slog.Error("failed to initialise handler", "error", err)
		utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable", "")
		return
	}

	// 将请求传递给Chi路由器处理
	h.ServeHTTP(w, r)
}

// getRouter 复用路由器，数据库连接被重建时一并重建
func getRouter(ctx context.Context, cfg *config.Config) (http.Handler, error) {
	// 连接由连接池管理，无需手动关闭
	db, err := database.GetDatabase(ctx, database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	if broker == nil {
		// 订阅的生命周期不跟随单个请求
		b, err := realtime.NewBroker(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		broker = b
	}
	if router == nil || routerDB != db {
		router = server.NewRouter(server.NewApp(cfg, db, broker))
		routerDB = db
	}
	return router, nil
}
