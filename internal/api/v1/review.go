package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dkmverify/internal/model"
	"dkmverify/internal/service/review"
)

// CaseResponse 当前案件与表单
type CaseResponse struct {
	*review.CaseView
	Form review.FormView `json:"form"`
}

// GetCase 获取队首案件；未就绪的行会自动跳到队尾
// GET /api/case
func (h *Handler) GetCase(c *gin.Context) {
	view, err := h.session.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CaseResponse{CaseView: view, Form: h.session.Snapshot().Form})
}

// SearchStaff 查找当前案件学校的教职工
// GET /api/staff?q=
func (h *Handler) SearchStaff(c *gin.Context) {
	staff, err := h.session.StaffSearch(c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	if staff == nil {
		staff = []model.StaffMember{}
	}
	c.JSON(http.StatusOK, gin.H{"items": staff})
}

// GetRules 获取评估规则表
// GET /api/rules
func (h *Handler) GetRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Rules())
}

// GetEvaluation 获取表单状态
// GET /api/evaluation
func (h *Handler) GetEvaluation(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot().Form)
}

// SetFieldRequest 修改字段选项
type SetFieldRequest struct {
	Option string `json:"option" binding:"required"`
}

// SetField 修改评估字段
// PUT /api/evaluation/fields/:code
func (h *Handler) SetField(c *gin.Context) {
	var req SetFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	form, err := h.session.SetField(c.Param("code"), req.Option)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "字段或选项无效", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, form)
}

// SetReasonRequest 修改理由文本
type SetReasonRequest struct {
	Reason string `json:"reason"`
}

// SetReason 修改拒绝理由
// PUT /api/evaluation/reason
func (h *Handler) SetReason(c *gin.Context) {
	var req SetReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	c.JSON(http.StatusOK, h.session.SetReason(req.Reason))
}

// ResetEvaluation 表单恢复默认
// POST /api/evaluation/reset
func (h *Handler) ResetEvaluation(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.ResetForm())
}

// DecideRequest 提交决定
type DecideRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// Decide 提交当前案件的决定
// POST /api/decision
func (h *Handler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	decision, err := model.ParseDecision(req.Decision)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "决定无效: " + req.Decision})
		return
	}

	result, err := h.session.Decide(c.Request.Context(), decision)
	if err != nil {
		status, msg := errorStatus(err)
		body := gin.H{"error": msg, "detail": err.Error()}
		if result.Outcome != "" {
			body["outcome"] = result.Outcome
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, result)
}
