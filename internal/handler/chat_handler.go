package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"edubot/internal/service"
	"edubot/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 通过 HTTP 和 WebSocket 处理对话请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Generate 处理 POST /generate。
func (h *ChatHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido: "+err.Error())
		return
	}
	res, err := h.chatService.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Generate", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type completionFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	*service.GenerateResult
}

// Stream 处理 GET /ws/generate。每个文本帧都是一个 /generate 请求体，
// 回复为若干 {"chunk"} 帧加一个完成帧，出错时为 {"error"} 帧。
func (h *ChatHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("Failed to read websocket message: %v", err)
			}
			return
		}

		var req service.GenerateRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if writeErr := conn.WriteJSON(gin.H{"error": "Mensagem inválida"}); writeErr != nil {
				return
			}
			continue
		}

		var writeFailed bool
		res, err := h.chatService.Stream(ctx, req, func(chunk string) error {
			if err := conn.WriteJSON(gin.H{"chunk": chunk}); err != nil {
				writeFailed = true
				return err
			}
			return nil
		})
		if writeFailed {
			log.Warnf("Websocket closed while streaming: %v", err)
			return
		}
		if err != nil {
			_, msg := statusFor(err)
			if !errors.Is(err, service.ErrValidation) {
				log.Errorw("Stream failed", "error", err)
			}
			if writeErr := conn.WriteJSON(gin.H{"error": msg}); writeErr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(completionFrame{Type: "completion", Status: "finished", GenerateResult: res}); err != nil {
			return
		}
	}
}
