package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// ErrNotAuthenticated is returned by RequireUser when no user is in the context.
var ErrNotAuthenticated = errors.New("user not authenticated")

// TokenValidator verifies session access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*models.TokenClaims, error)
}

// UserResolver loads the user named by a token subject.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (*models.User, error)
}

const accessTokenParam = "access_token"

// bearerToken 从Authorization头或access_token查询参数获取token
// 浏览器的WebSocket无法设置请求头，因此允许查询参数
func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return "", false
		}
		return tokenString, true
	}
	if q := r.URL.Query().Get(accessTokenParam); q != "" {
		return q, true
	}
	return "", false
}

// authenticate returns the request's user, or the reason it could not be resolved.
func authenticate(r *http.Request, tokens TokenValidator, users UserResolver) (*models.User, string) {
	tokenString, ok := bearerToken(r)
	if !ok {
		if r.Header.Get("Authorization") != "" {
			return nil, "Invalid authorization header format"
		}
		return nil, "Missing authorization header"
	}

	claims, err := tokens.ValidateAccessToken(tokenString)
	if err != nil {
		slog.Debug("auth: token rejected", "path", r.URL.Path, "error", err)
		return nil, "Invalid token"
	}

	user, err := users.Resolve(r.Context(), claims.Subject)
	if err != nil {
		slog.Debug("auth: user lookup failed", "user_id", claims.Subject, "error", err)
		return nil, "Unknown user"
	}
	return user, ""
}

// AuthMiddleware JWT认证中间件
// 验证访问令牌后从用户目录加载用户及其角色
func AuthMiddleware(tokens TokenValidator, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, reason := authenticate(r, tokens, users)
			if user == nil {
				utils.WriteUnauthorizedResponse(w, reason)
				return
			}

			// 将用户信息添加到请求context中
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware 可选的认证中间件（不强制要求认证）
// token无效时按匿名请求处理
func OptionalAuthMiddleware(tokens TokenValidator, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, _ := authenticate(r, tokens, users); user != nil {
				ctx := context.WithValue(r.Context(), UserContextKey, user)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
