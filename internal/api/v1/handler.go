package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"dkmverify/internal/model"
	"dkmverify/internal/service/excel"
	"dkmverify/internal/service/review"
)

// Credentials 门户凭证管理
type Credentials interface {
	SetCookie(ctx context.Context, cookie, identity string) error
	SetLogin(ctx context.Context, username, password string) error
}

// DecisionLister 决定审计日志查询
type DecisionLister interface {
	ListDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error)
}

// Handler V1 API 处理器
type Handler struct {
	session     *review.Session
	credentials Credentials
	decisions   DecisionLister
	exporter    *excel.Exporter
}

// NewHandler 创建 V1 API 处理器
func NewHandler(session *review.Session, credentials Credentials, decisions DecisionLister) *Handler {
	return &Handler{
		session:     session,
		credentials: credentials,
		decisions:   decisions,
		exporter:    excel.NewExporter(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 会话状态
	router.GET("/status", h.GetStatus)
	router.POST("/session/cookie", h.SetCookie)
	router.POST("/session/login", h.SetLogin)
	router.POST("/session/resume", h.Resume)

	// 待审核队列
	router.POST("/queue/load", h.LoadQueue)
	router.GET("/queue", h.GetQueue)
	router.POST("/queue/select", h.SelectRow)
	router.POST("/skip", h.Skip)

	// 当前案件
	router.GET("/case", h.GetCase)
	router.GET("/staff", h.SearchStaff)

	// 评估表单
	router.GET("/rules", h.GetRules)
	router.GET("/evaluation", h.GetEvaluation)
	router.PUT("/evaluation/fields/:code", h.SetField)
	router.PUT("/evaluation/reason", h.SetReason)
	router.POST("/evaluation/reset", h.ResetEvaluation)

	// 决定
	router.POST("/decision", h.Decide)
	router.GET("/decisions", h.ListDecisions)
	router.GET("/decisions/export", h.ExportDecisions)
}
