package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"arena-breakout-backend/pkg/config"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/utils"
)

// HealthChecker reports storage health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuthHandler 认证处理器
// 登录由外部身份服务完成，这里只负责刷新令牌、当前用户和健康检查
type AuthHandler struct {
	config *config.Config
	db     HealthChecker
	jwt    *utils.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db HealthChecker, jwt *utils.JWTService) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		jwt:    jwt,
	}
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	accessToken, expiresIn, err := h.jwt.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]any{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Me 返回当前用户
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireCaller(w, r)
	if !ok {
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// Root 服务信息
func (h *AuthHandler) Root(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]any{
		"service": "arena-breakout-backend",
		"version": "1.0.0",
		"health":  "/api/health",
	})
}

// HealthCheck 健康检查
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// 测试数据库连接
	dbStatus := "healthy"
	status := http.StatusOK
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	utils.WriteJSONResponse(w, status, map[string]any{
		"service":     "arena-breakout-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.getDatabaseType(),
		"db_status":   dbStatus,
		"livekit":     h.config.LiveKitConfigured(),
		"timestamp":   time.Now().Unix(),
	})
}

// getDatabaseType 获取数据库类型
func (h *AuthHandler) getDatabaseType() string {
	if h.config.PostgresDSN != "" {
		return "postgresql"
	}
	return "sqlite"
}
