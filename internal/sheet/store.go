// Package sheet 共享工作队列表格（读取全部行、按行写回、跳过标记）
package sheet

import (
	"context"
	"fmt"

	"dkmverify/internal/model"
)

// Mark 跳过标记（仅格式，不改变单元格内容）
type Mark string

const (
	MarkNotReady Mark = "not_ready" // 门户尚未就绪，稍后再审
	MarkSkipped  Mark = "skipped"   // 数据无效，人工跳过
)

// Valid 是否为已知标记
func (m Mark) Valid() bool {
	return m == MarkNotReady || m == MarkSkipped
}

// UpdateRequest 单行写回请求
type UpdateRequest struct {
	RowIndex int            `json:"rowIndex"`
	Values   map[string]any `json:"updates"`        // 列字母 → 值
	Note     *string        `json:"note,omitempty"` // 可选的拒绝理由
}

// Store 表格存储接口
type Store interface {
	// Rows 返回全部行（含表头之前的行），rowIndex 为 1 起始的物理行号
	Rows(ctx context.Context) ([]model.SheetRow, error)
	// Update 按列字母写回一行；未知列由存储端拒绝
	Update(ctx context.Context, req UpdateRequest) error
	// MarkSkip 为一行设置跳过标记格式
	MarkSkip(ctx context.Context, rowIndex int, mark Mark) error
}

// StatusError 存储端返回非成功状态
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheet %s: status %d: %s", e.Op, e.Status, e.Body)
}
