package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 会话状态响应
type StatusResponse struct {
	Verifier    string `json:"verifier"`    // 当前审核人
	Halted      bool   `json:"halted"`      // 是否等待重新认证
	QueueLength int    `json:"queueLength"` // 队列长度
	Cursor      int    `json:"cursor"`      // 当前位置
	HasCase     bool   `json:"hasCase"`     // 是否已获取案件
	SubmitState string `json:"submitState"` // 提交状态
}

// GetStatus 获取会话状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	snap := h.session.Snapshot()
	c.JSON(http.StatusOK, StatusResponse{
		Verifier:    snap.Verifier,
		Halted:      snap.Halted,
		QueueLength: snap.QueueLength,
		Cursor:      snap.Cursor,
		HasCase:     snap.Case != nil,
		SubmitState: snap.SubmitState,
	})
}

// SetCookieRequest 手动设置会话 cookie
type SetCookieRequest struct {
	Cookie   string `json:"cookie" binding:"required"`
	Identity string `json:"identity"`
}

// SetCookie 设置门户会话 cookie 并立即校验
// POST /api/session/cookie
func (h *Handler) SetCookie(c *gin.Context) {
	var req SetCookieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if err := h.credentials.SetCookie(c.Request.Context(), req.Cookie, req.Identity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "保存 cookie 失败", "detail": err.Error()})
		return
	}
	h.resume(c)
}

// SetLoginRequest 重新登录凭证
type SetLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetLogin 保存用户名密码并尝试认证
// POST /api/session/login
func (h *Handler) SetLogin(c *gin.Context) {
	var req SetLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if err := h.credentials.SetLogin(c.Request.Context(), req.Username, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "保存登录信息失败", "detail": err.Error()})
		return
	}
	h.resume(c)
}

// Resume 重新认证后恢复会话
// POST /api/session/resume
func (h *Handler) Resume(c *gin.Context) {
	h.resume(c)
}

func (h *Handler) resume(c *gin.Context) {
	identity, err := h.session.Resume(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}
