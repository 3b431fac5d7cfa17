package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dkmverify/internal/model"
	"dkmverify/internal/service/review"
)

// LoadQueueRequest 加载队列请求；verifier 为空时使用门户登录名
type LoadQueueRequest struct {
	Verifier string `json:"verifier"`
}

// QueueResponse 队列响应
type QueueResponse struct {
	Verifier string           `json:"verifier"`
	Cursor   int              `json:"cursor"`
	Rows     []model.SheetRow `json:"rows"`
}

// LoadQueue 加载审核人的待审队列
// POST /api/queue/load
func (h *Handler) LoadQueue(c *gin.Context) {
	var req LoadQueueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
			return
		}
	}
	if _, err := h.session.Load(c.Request.Context(), req.Verifier); err != nil {
		writeError(c, err)
		return
	}
	h.GetQueue(c)
}

// GetQueue 获取当前队列
// GET /api/queue
func (h *Handler) GetQueue(c *gin.Context) {
	snap := h.session.Snapshot()
	rows := snap.Rows
	if rows == nil {
		rows = []model.SheetRow{}
	}
	c.JSON(http.StatusOK, QueueResponse{
		Verifier: snap.Verifier,
		Cursor:   snap.Cursor,
		Rows:     rows,
	})
}

// SelectRowRequest 选择队列位置
type SelectRowRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SelectRow 将游标移到指定位置
// POST /api/queue/select
func (h *Handler) SelectRow(c *gin.Context) {
	var req SelectRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if !h.session.Select(*req.Index) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "队列位置无效"})
		return
	}
	h.GetQueue(c)
}

// SkipRequest 跳过请求：reason 为 not_ready / data_invalid，缺省时按 dataInvalid 推导
type SkipRequest struct {
	Reason      string `json:"reason"`
	DataInvalid bool   `json:"dataInvalid"`
}

// Skip 跳过当前行
// POST /api/skip
func (h *Handler) Skip(c *gin.Context) {
	var req SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	reason := review.SkipReasonFromValidity(req.DataInvalid)
	if strings.TrimSpace(req.Reason) != "" {
		parsed, ok := review.ParseSkipReason(req.Reason)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "跳过原因无效: " + req.Reason})
			return
		}
		reason = parsed
	}

	if err := h.session.Skip(c.Request.Context(), reason); err != nil {
		writeError(c, err)
		return
	}
	h.GetQueue(c)
}
