package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildrop/backend/internal/service"
)

// Handler 处理邮箱生成与收件箱读取
type Handler struct {
	generation *service.GenerationService
	messages   *service.MessageService
	log        *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(generation *service.GenerationService, messages *service.MessageService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		generation: generation,
		messages:   messages,
		log:        log,
	}
}

type domainResponse struct {
	Domain string `json:"domain"`
}

// Index 存活文本
// @Summary 服务状态
// @Tags Status
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, MsgServiceRunning)
}

// GenerateEmail 生成临时邮箱
// @Summary 生成临时邮箱
// @Description 不带 prefix 时生成 8 位随机前缀；自定义前缀会先转为小写，失败后回退到随机前缀
// @Tags Mail
// @Produce json
// @Param prefix query string false "自定义前缀，3-30 位字母、数字、点、横线或下划线"
// @Success 200 {object} domain.GeneratedEmail
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/generate [get]
func (h *Handler) GenerateEmail(c *gin.Context) {
	result, err := h.generation.Generate(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.log.Error("email generation error", zap.Error(err))
		writeError(c, err, MsgGenerationFailed)
		return
	}

	c.JSON(http.StatusOK, result.Email)
}

// ListMessages 获取收件箱
// @Summary 获取收件箱
// @Description 返回上游消息摘要数组，原样转发
// @Tags Mail
// @Produce json
// @Param prefix query string true "邮箱前缀"
// @Success 200 {array} object
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	messages, err := h.messages.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.log.Warn("inbox fetch error", zap.String("prefix", c.Query("prefix")), zap.Error(err))
		writeError(c, err, MsgInboxFailed)
		return
	}
	if messages == nil {
		messages = []json.RawMessage{}
	}

	c.JSON(http.StatusOK, messages)
}

// GetMessage 获取单封邮件
// @Summary 获取单封邮件
// @Description 返回上游消息详情，原样转发
// @Tags Mail
// @Produce json
// @Param prefix query string true "邮箱前缀"
// @Param id query string true "消息 ID"
// @Success 200 {object} object
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/message [get]
func (h *Handler) GetMessage(c *gin.Context) {
	message, err := h.messages.Get(c.Request.Context(), c.Query("prefix"), c.Query("id"))
	if err != nil {
		h.log.Warn("message fetch error",
			zap.String("prefix", c.Query("prefix")),
			zap.String("id", c.Query("id")),
			zap.Error(err),
		)
		writeError(c, err, MsgMessageFailed)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", message)
}

// GetDomain 当前生成邮箱使用的域名
// @Summary 当前邮箱域名
// @Tags Mail
// @Produce json
// @Success 200 {object} domainResponse
// @Failure 500 {object} errorResponse
// @Router /api/domain [get]
func (h *Handler) GetDomain(c *gin.Context) {
	d, err := h.generation.ActiveDomain(c.Request.Context())
	if err != nil {
		h.log.Error("domain resolve error", zap.Error(err))
		writeError(c, err, MsgDomainUnavailable)
		return
	}

	c.JSON(http.StatusOK, domainResponse{Domain: d})
}
