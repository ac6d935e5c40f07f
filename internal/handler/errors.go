// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"edubot/internal/service"
	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusFor 将 service 层的哨兵错误映射为 HTTP 状态码和返回给客户端的消息。
// 模型调用失败和未知错误只返回通用消息，细节只写日志。
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrMalformedID):
		return http.StatusBadRequest, "ID de histórico inválido"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Histórico não encontrado"
	case errors.Is(err, service.ErrProvider):
		return http.StatusInternalServerError, "Erro ao se comunicar com a IA"
	default:
		return http.StatusInternalServerError, "Erro interno do servidor"
	}
}

func respondError(c *gin.Context, action string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorw(action+" failed", "path", c.Request.URL.Path, "error", err)
	} else {
		log.Warnw(action+" rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	log.Warnw("Bad request", "path", c.Request.URL.Path, "error", msg)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Health 用于存活检查。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
