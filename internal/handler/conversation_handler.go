package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"edubot/internal/model"
	"edubot/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与会话记录相关的 API 请求。
type ConversationHandler struct {
	transcripts service.TranscriptService
	titles      service.TitleService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(transcripts service.TranscriptService, titles service.TitleService) *ConversationHandler {
	return &ConversationHandler{transcripts: transcripts, titles: titles}
}

// 保存请求中直接映射到会话记录的字段，其余字段存入 Extra
var managedSaveFields = map[string]bool{
	"sessionId": true,
	"userId":    true,
	"messages":  true,
	"titulo":    true,
	"botId":     true,
	"_id":       true,
	"startTime": true,
	"endTime":   true,
	"loggedAt":  true,
	"createdAt": true,
	"updatedAt": true,
}

// SaveHistory 处理 POST /api/chat/salvar-historico。
func (h *ConversationHandler) SaveHistory(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}

	var req service.SaveRequest
	if !decodeString(raw["sessionId"], &req.SessionID) || !decodeString(raw["userId"], &req.UserID) ||
		req.SessionID == "" || req.UserID == "" {
		badRequest(c, "sessionId, userId e messages são obrigatórios")
		return
	}
	msgs := bytes.TrimSpace(raw["messages"])
	if len(msgs) == 0 || msgs[0] != '[' {
		badRequest(c, "messages deve ser uma lista")
		return
	}
	req.Messages = []model.Turn{}
	if err := json.Unmarshal(msgs, &req.Messages); err != nil {
		badRequest(c, "messages contém itens inválidos")
		return
	}
	if t, ok := raw["titulo"]; ok && !decodeString(t, &req.Title) {
		badRequest(c, "titulo deve ser um texto")
		return
	}
	for k, v := range raw {
		if managedSaveFields[k] {
			continue
		}
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if req.Extra == nil {
			req.Extra = make(map[string]interface{})
		}
		req.Extra[k] = val
	}

	if _, err := h.transcripts.Save(c.Request.Context(), req); err != nil {
		respondError(c, "SaveHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Histórico salvo com sucesso"})
}

// decodeString 接受 JSON 字符串或缺省字段。
func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, dst) == nil
}

// ListHistories 处理 GET /api/chat/historicos?userId=。
func (h *ConversationHandler) ListHistories(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "userId é obrigatório")
		return
	}
	list, err := h.transcripts.ListByUser(c.Request.Context(), userID, service.MaxListedTranscripts)
	if err != nil {
		respondError(c, "ListHistories", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteHistory 处理 DELETE /api/chat/historicos/:id。
func (h *ConversationHandler) DeleteHistory(c *gin.Context) {
	if err := h.transcripts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "DeleteHistory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Histórico excluído com sucesso"})
}

// GenerateTitle 处理 POST /api/chat/historicos/:id/gerar-titulo，只生成不保存。
func (h *ConversationHandler) GenerateTitle(c *gin.Context) {
	title, err := h.titles.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "GenerateTitle", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"titulo": title})
}

// RenameHistory 处理 PUT /api/chat/historicos/:id。
func (h *ConversationHandler) RenameHistory(c *gin.Context) {
	var req struct {
		Title string `json:"titulo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}
	updated, err := h.transcripts.Rename(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, "RenameHistory", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
