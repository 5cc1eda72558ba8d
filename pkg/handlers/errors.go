package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"arena-breakout-backend/pkg/middleware"
	"arena-breakout-backend/pkg/models"
	"arena-breakout-backend/pkg/services"
	"arena-breakout-backend/pkg/utils"
)

// writeServiceError 将领域错误映射为HTTP响应
// 未分类的错误记录日志并返回500，不向客户端暴露内部信息
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		utils.WriteAPIError(w, se.Code.HTTPStatus(), &utils.APIError{
			Code:    string(se.Code),
			Message: se.Message,
			Status:  string(se.Status),
		})
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.WriteErrorResponseWithCode(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", "")
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
}

// requireCaller 获取已认证用户，未认证时写入401
func requireCaller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return user, true
}

// decodeBody 解析请求体，失败时写入400
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utils.ParseJSONBody(r, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, err)
			return false
		}
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return false
	}
	return true
}
