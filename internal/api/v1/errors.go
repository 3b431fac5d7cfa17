package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dkmverify/internal/service/auth"
	"dkmverify/internal/service/review"
)

// errorStatus 将服务层错误映射为 HTTP 状态码与提示
func errorStatus(err error) (int, string) {
	var (
		schemaErr   *review.SchemaError
		keyErr      *review.MissingKeyError
		fetchErr    *review.FetchError
		registryErr *review.RegistryError
		storeErr    *review.StoreError
	)

	switch {
	case auth.IsAuthFailure(err):
		return http.StatusUnauthorized, "门户凭证失效，请重新认证"
	case errors.Is(err, review.ErrHalted):
		return http.StatusLocked, "会话已暂停，请重新认证后继续"
	case errors.Is(err, review.ErrQueueEmpty):
		return http.StatusNotFound, "待审核队列为空"
	case errors.Is(err, review.ErrNothingReady):
		return http.StatusNotFound, "队列中暂无门户已就绪的案件"
	case errors.Is(err, review.ErrNoCase):
		return http.StatusConflict, "当前没有待审核案件"
	case errors.Is(err, review.ErrSubmitInProgress):
		return http.StatusConflict, "提交进行中"
	case errors.Is(err, review.ErrAlreadyCommitted):
		return http.StatusConflict, "该案件已提交"
	case errors.Is(err, review.ErrEmptyRationale):
		return http.StatusBadRequest, "拒绝理由不能为空"
	case errors.Is(err, review.ErrNoVerifier):
		return http.StatusBadRequest, "未指定审核人"
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, "表格缺少必需列: " + strings.Join(schemaErr.Missing, ", ")
	case errors.As(err, &keyErr):
		return http.StatusUnprocessableEntity, "该行缺少 NPSN，请手动跳过"
	case errors.As(err, &storeErr):
		return http.StatusBadGateway, "门户已更新但表格写回失败，需要人工核对"
	case errors.As(err, &registryErr):
		return http.StatusBadGateway, "登记库查询失败"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "门户请求失败"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "请求已取消"
	default:
		return http.StatusInternalServerError, "内部错误"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	c.JSON(status, gin.H{"error": msg, "detail": err.Error()})
}
