package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Nemi_Hub/internal/decision"
	"Nemi_Hub/internal/middleware"
	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/redis"
	"Nemi_Hub/internal/service"

	"github.com/gin-gonic/gin"
)

// statusOf 业务错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, decision.ErrInvalidDecision),
		errors.Is(err, decision.ErrInvalidPosition),
		errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, decision.ErrUnsupportedMethod),
		errors.Is(err, decision.ErrStatementRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, decision.ErrDecisionNotOpen),
		errors.Is(err, decision.ErrInvalidTransition),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrCommunityExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrNoPermission):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, pkg.ErrTokenExpired),
		errors.Is(err, pkg.ErrTokenInvalid),
		errors.Is(err, pkg.ErrRefreshExpired),
		errors.Is(err, pkg.ErrRefreshInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, redis.ErrRedisUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// 内部错误只记日志，不把细节返回给客户端
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"code": 1, "msg": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": msg})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": data})
}

func userIDFromCtx(c *gin.Context) (uint64, bool) {
	uid, exists := middleware.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 1, "msg": "unauthorized"})
		return 0, false
	}
	return uid, true
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
