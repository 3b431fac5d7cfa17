package sheet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"dkmverify/internal/model"
)

// 跳过标记对应的填充色
var markFills = map[Mark]string{
	MarkNotReady: "#FFF2CC",
	MarkSkipped:  "#F4CCCC",
}

// Workbook 本地 .xlsx 工作簿实现（离线或演示时代替表格服务）
type Workbook struct {
	path       string
	sheetName  string
	noteColumn string
	mu         sync.Mutex
}

var _ Store = (*Workbook)(nil)

// NewWorkbook 创建工作簿存储；noteColumn 为拒绝理由写入列（为空则忽略 note）
func NewWorkbook(path, sheetName, noteColumn string) *Workbook {
	return &Workbook{path: path, sheetName: sheetName, noteColumn: noteColumn}
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if idx, err := f.GetSheetIndex(w.sheetName); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found in %s", w.sheetName, w.path)
	}
	return f, nil
}

// Rows 读取工作表全部行
func (w *Workbook) Rows(ctx context.Context) ([]model.SheetRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	out := make([]model.SheetRow, 0, len(rows))
	for i, cols := range rows {
		cells := make([]any, len(cols))
		for j, v := range cols {
			cells[j] = v
		}
		out = append(out, model.SheetRow{RowIndex: i + 1, Cells: cells})
	}
	return out, nil
}

// Update 按列字母写回一行，未知列拒绝
func (w *Workbook) Update(ctx context.Context, req UpdateRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.RowIndex < 1 {
		return fmt.Errorf("invalid row index %d", req.RowIndex)
	}
	for col := range req.Values {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("unknown column %q: %w", col, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for col, v := range req.Values {
		cell := fmt.Sprintf("%s%d", strings.ToUpper(col), req.RowIndex)
		if err := f.SetCellValue(w.sheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}
	if req.Note != nil && w.noteColumn != "" {
		cell := fmt.Sprintf("%s%d", w.noteColumn, req.RowIndex)
		if err := f.SetCellValue(w.sheetName, cell, *req.Note); err != nil {
			return fmt.Errorf("failed to set note %s: %w", cell, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// MarkSkip 以整行填充色标记跳过
func (w *Workbook) MarkSkip(ctx context.Context, rowIndex int, mark Mark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	color, ok := markFills[mark]
	if !ok {
		return fmt.Errorf("unknown skip mark %q", mark)
	}
	if rowIndex < 1 {
		return fmt.Errorf("invalid row index %d", rowIndex)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetRowStyle(w.sheetName, rowIndex, rowIndex, style); err != nil {
		return fmt.Errorf("failed to style row %d: %w", rowIndex, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
