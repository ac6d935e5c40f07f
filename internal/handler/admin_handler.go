package handler

import (
	"net/http"
	"strconv"

	"edubot/internal/service"
	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 处理管理员相关的 API 请求。路由组需挂载 AdminAuthMiddleware。
type AdminHandler struct {
	adminService service.AdminService
	instructions service.InstructionService
	botID        string
}

// NewAdminHandler 创建一个新的 AdminHandler。
func NewAdminHandler(adminService service.AdminService, instructions service.InstructionService, botID string) *AdminHandler {
	return &AdminHandler{adminService: adminService, instructions: instructions, botID: botID}
}

// Stats 处理 GET /api/admin/stats。
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSystemInstruction 处理 GET /api/admin/system-instruction。
func (h *AdminHandler) GetSystemInstruction(c *gin.Context) {
	si, err := h.instructions.GetActive(c.Request.Context(), h.botID)
	if err != nil {
		respondError(c, "GetSystemInstruction", err)
		return
	}
	c.JSON(http.StatusOK, si)
}

// UpdateSystemInstruction 处理 POST /api/admin/system-instruction。
func (h *AdminHandler) UpdateSystemInstruction(c *gin.Context) {
	var req struct {
		Instruction string `json:"instruction"`
		UpdatedBy   string `json:"updatedBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	si, err := h.instructions.SetActive(c.Request.Context(), h.botID, req.Instruction, req.UpdatedBy)
	if err != nil {
		respondError(c, "UpdateSystemInstruction", err)
		return
	}
	log.Infof("System instruction for bot %s replaced by %s", h.botID, si.UpdatedBy)
	c.JSON(http.StatusOK, si)
}

// SystemInstructionHistory 处理 GET /api/admin/system-instruction/history。
func (h *AdminHandler) SystemInstructionHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.instructions.History(c.Request.Context(), h.botID, limit)
	if err != nil {
		respondError(c, "SystemInstructionHistory", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AllHistories 处理 GET /api/admin/all-historicos?page&limit。
func (h *AdminHandler) AllHistories(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageSize)))

	list, err := h.adminService.ListTranscripts(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, "AllHistories", err)
		return
	}
	c.JSON(http.StatusOK, list)
}
