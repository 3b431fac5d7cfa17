package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"dkmverify/internal/model"
)

const (
	decisionSheet = "决定记录"
	summarySheet  = "汇总"
	timeLayout    = "2006-01-02 15:04:05"
)

// Exporter 决定审计日志的Excel导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 导出决定记录；includeSummary 时追加按结果统计的汇总表
func (e *Exporter) Export(records []model.DecisionRecord, includeSummary bool) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", decisionSheet); err != nil {
		f.Close()
		return nil, err
	}

	headers := []string{
		"时间", "行号", "NPSN", "审核人", "决定", "理由", "理由已修改", "结果", "详情",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(decisionSheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetRowStyle(decisionSheet, 1, 1, headerStyle)

	for i, r := range records {
		row := i + 2
		f.SetCellValue(decisionSheet, fmt.Sprintf("A%d", row), r.CreatedAt.Local().Format(timeLayout))
		f.SetCellValue(decisionSheet, fmt.Sprintf("B%d", row), r.RowIndex)
		f.SetCellValue(decisionSheet, fmt.Sprintf("C%d", row), r.CaseKey)
		f.SetCellValue(decisionSheet, fmt.Sprintf("D%d", row), r.Verifier)
		f.SetCellValue(decisionSheet, fmt.Sprintf("E%d", row), decisionLabel(r.Decision))
		f.SetCellValue(decisionSheet, fmt.Sprintf("F%d", row), r.Rationale)
		f.SetCellValue(decisionSheet, fmt.Sprintf("G%d", row), yesNo(r.Edited))
		f.SetCellValue(decisionSheet, fmt.Sprintf("H%d", row), string(r.Outcome))
		f.SetCellValue(decisionSheet, fmt.Sprintf("I%d", row), r.Detail)
	}

	if includeSummary {
		if _, err := f.NewSheet(summarySheet); err != nil {
			f.Close()
			return nil, err
		}

		counts := make(map[model.Outcome]int)
		for _, r := range records {
			counts[r.Outcome]++
		}
		data := [][]interface{}{
			{"结果", "数量"},
			{string(model.OutcomeCommitted), counts[model.OutcomeCommitted]},
			{string(model.OutcomeAuthFailed), counts[model.OutcomeAuthFailed]},
			{string(model.OutcomePortalFailed), counts[model.OutcomePortalFailed]},
			{string(model.OutcomeStoreFailed), counts[model.OutcomeStoreFailed]},
			{"合计", len(records)},
		}
		for i, row := range data {
			for j, val := range row {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				f.SetCellValue(summarySheet, cell, val)
			}
		}
		f.SetRowStyle(summarySheet, 1, 1, headerStyle)
		f.SetColWidth(summarySheet, "A", "A", 18)
	}

	f.SetColWidth(decisionSheet, "A", "A", 20)
	f.SetColWidth(decisionSheet, "C", "E", 15)
	f.SetColWidth(decisionSheet, "F", "F", 50)
	f.SetColWidth(decisionSheet, "I", "I", 40)

	return f, nil
}

func decisionLabel(d model.Decision) string {
	switch d {
	case model.DecisionAccept:
		return "TERIMA"
	case model.DecisionReject:
		return "TOLAK"
	default:
		return string(d)
	}
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
