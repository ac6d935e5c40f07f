package handler

import (
	"net/http"
	"os"

	"edubot/internal/middleware"
	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
)

// Handlers 汇总 RegisterRoutes 挂载的控制器。
type Handlers struct {
	Chat         *ChatHandler
	Conversation *ConversationHandler
	Admin        *AdminHandler
}

// RegisterRoutes 注册所有 API 路由。管理员路由由 adminSecret 保护。
func RegisterRoutes(r *gin.Engine, h Handlers, adminSecret string) {
	r.GET("/healthz", Health)

	r.POST("/generate", h.Chat.Generate)
	r.GET("/ws/generate", h.Chat.Stream)

	chat := r.Group("/api/chat")
	{
		chat.POST("/salvar-historico", h.Conversation.SaveHistory)
		chat.GET("/historicos", h.Conversation.ListHistories)
		chat.DELETE("/historicos/:id", h.Conversation.DeleteHistory)
		chat.PUT("/historicos/:id", h.Conversation.RenameHistory)
		chat.POST("/historicos/:id/gerar-titulo", h.Conversation.GenerateTitle)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuthMiddleware(adminSecret))
	{
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/system-instruction", h.Admin.GetSystemInstruction)
		admin.POST("/system-instruction", h.Admin.UpdateSystemInstruction)
		admin.GET("/system-instruction/history", h.Admin.SystemInstructionHistory)
		admin.GET("/all-historicos", h.Admin.AllHistories)
	}
}

// ServeStatic 对未匹配任何路由的路径，从 dir 提供浏览器前端文件。
func ServeStatic(r *gin.Engine, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Infof("Static directory '%s' not found, browser client not served", dir)
		return
	}
	fs := http.FileServer(http.Dir(dir))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rota não encontrada"})
			return
		}
		fs.ServeHTTP(c.Writer, c.Request)
	})
}
