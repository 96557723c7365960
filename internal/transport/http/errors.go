package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/service"
)

// 对外错误消息，保持与既有前端一致
const (
	MsgInvalidPrefix     = "Invalid custom prefix. Use only letters, numbers, dots, dashes, and underscores (3–30 characters)."
	MsgUnknownPrefix     = "Unknown email prefix."
	MsgMessageIDRequired = "Message id is required."
	MsgGenerationFailed  = "Email generation failed."
	MsgInboxFailed       = "Failed to load inbox."
	MsgMessageFailed     = "Failed to load message."
	MsgDomainUnavailable = "Email domain unavailable."
	MsgServiceRunning    = "✅ MailDropHQ Backend is running."
)

// errorResponse 错误响应
type errorResponse struct {
	Error string `json:"error"`
}

// 业务错误 -> HTTP 状态码与对外消息
var errorMappings = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrPrefixInvalid, http.StatusBadRequest, MsgInvalidPrefix},
	{service.ErrUnknownPrefix, http.StatusNotFound, MsgUnknownPrefix},
	{service.ErrMessageIDRequired, http.StatusNotFound, MsgMessageIDRequired},
}

// writeError 写入错误响应。未映射的错误返回 500 和 fallback 消息，细节只记录到日志。
func writeError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, errorResponse{Error: m.message})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
}
