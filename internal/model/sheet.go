package model

import (
	"strconv"
	"strings"
)

// SheetRow 工作队列表中的一行（rowIndex 为表格物理行号，从 1 开始）
type SheetRow struct {
	RowIndex int      `json:"rowIndex"`         // 物理行号，写回时使用
	Cells    []any    `json:"rowData"`          // 单元格值（string 或 number）
	Header   []string `json:"header,omitempty"` // 表头（队列加载后附加）
}

// Cell 按列序号取单元格文本，越界返回空串
func (r SheetRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return CellString(r.Cells[i])
}

// Column 按表头名称取单元格文本
func (r SheetRow) Column(name string) (string, bool) {
	idx := r.HeaderIndex(name)
	if idx < 0 {
		return "", false
	}
	return r.Cell(idx), true
}

// HeaderIndex 查找表头列序号（区分大小写，精确匹配），不存在返回 -1
func (r SheetRow) HeaderIndex(name string) int {
	return IndexOf(r.Header, name)
}

// IndexOf 精确匹配查找列名
func IndexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// CellString 将单元格值格式化为文本
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return s.String()
		}
		return ""
	}
}

// IsBlank 单元格是否为空（去除空白后）
func IsBlank(v any) bool {
	return strings.TrimSpace(CellString(v)) == ""
}
