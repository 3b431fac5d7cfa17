package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultDecisionLimit = 100

// ListDecisions 按时间倒序列出决定记录
// GET /api/decisions?limit=
func (h *Handler) ListDecisions(c *gin.Context) {
	limit := defaultDecisionLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 参数无效"})
			return
		}
		limit = v
	}

	records, err := h.decisions.ListDecisions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询决定记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records, "total": len(records)})
}

// ExportDecisions 导出全部决定记录为 Excel
// GET /api/decisions/export
func (h *Handler) ExportDecisions(c *gin.Context) {
	records, err := h.decisions.ListDecisions(c.Request.Context(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询决定记录失败"})
		return
	}

	f, err := h.exporter.Export(records, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成 Excel 失败"})
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成 Excel 失败"})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(time.Now()))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func buildExportContentDisposition(at time.Time) string {
	filename := fmt.Sprintf("决定记录_%s.xlsx", at.Format("20060102_150405"))
	return fmt.Sprintf(`attachment; filename="decisions.xlsx"; filename*=UTF-8''%s`, url.PathEscape(filename))
}
