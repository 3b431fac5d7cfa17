package review

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dkmverify/internal/metrics"
	"dkmverify/internal/model"
	"dkmverify/internal/sheet"
)

// SkipReason 跳过原因
type SkipReason int

const (
	// SkipNotReadyYet 门户尚未就绪：标记后移到队尾，稍后可能可以审核
	SkipNotReadyYet SkipReason = iota + 1
	// SkipDataInvalid 数据无效：标记后从队列中丢弃
	SkipDataInvalid
)

func (r SkipReason) String() string {
	switch r {
	case SkipNotReadyYet:
		return "not_ready"
	case SkipDataInvalid:
		return "data_invalid"
	default:
		return "unknown"
	}
}

// Mark 对应的表格格式标记
func (r SkipReason) Mark() sheet.Mark {
	if r == SkipDataInvalid {
		return sheet.MarkSkipped
	}
	return sheet.MarkNotReady
}

// ParseSkipReason 解析跳过原因
func ParseSkipReason(s string) (SkipReason, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_ready", "notready":
		return SkipNotReadyYet, true
	case "data_invalid", "invalid":
		return SkipDataInvalid, true
	default:
		return 0, false
	}
}

// SkipReasonFromValidity 旧的布尔跳过参数：dataInvalid 为 true 时丢弃该行，
// false 时视为尚未就绪并移到队尾
func SkipReasonFromValidity(dataInvalid bool) SkipReason {
	if dataInvalid {
		return SkipDataInvalid
	}
	return SkipNotReadyYet
}

// QueueOptions 表头位置与列名
type QueueOptions struct {
	HeaderRow      int    // 表头所在行（1 起始）
	AssigneeColumn string // 审核人列名
	StatusColumn   string // 状态列名
}

// DefaultQueueOptions 共享表格的默认布局
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{
		HeaderRow:      3,
		AssigneeColumn: "VERIFIKATOR",
		StatusColumn:   "STATUS (DITERIMA/DITOLAK)",
	}
}

// Queue 当前审核人的待审队列（非并发安全，由 Session 串行调用）
type Queue struct {
	store   sheet.Store
	opts    QueueOptions
	logger  *zap.Logger
	metrics *metrics.Recorder

	header []string
	rows   []model.SheetRow
	cursor int
}

// NewQueue 创建队列
func NewQueue(store sheet.Store, opts QueueOptions, logger *zap.Logger, rec *metrics.Recorder) *Queue {
	defaults := DefaultQueueOptions()
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = defaults.HeaderRow
	}
	if opts.AssigneeColumn == "" {
		opts.AssigneeColumn = defaults.AssigneeColumn
	}
	if opts.StatusColumn == "" {
		opts.StatusColumn = defaults.StatusColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		store:   store,
		opts:    opts,
		logger:  logger,
		metrics: rec,
		rows:    []model.SheetRow{},
	}
}

// Load 读取全部行，筛选出分配给 verifier 且状态为空的行，游标归零
func (q *Queue) Load(ctx context.Context, verifier string) ([]model.SheetRow, error) {
	all, err := q.store.Rows(ctx)
	if err != nil {
		return nil, err
	}

	q.cursor = 0
	q.rows = []model.SheetRow{}
	q.header = nil

	if len(all) < q.opts.HeaderRow {
		q.logger.Info("sheet has no header row yet", zap.Int("rows", len(all)))
		return q.Rows(), nil
	}

	headerRow := all[q.opts.HeaderRow-1]
	header := make([]string, len(headerRow.Cells))
	for i, v := range headerRow.Cells {
		header[i] = model.CellString(v)
	}

	assigneeIdx := model.IndexOf(header, q.opts.AssigneeColumn)
	statusIdx := model.IndexOf(header, q.opts.StatusColumn)
	var missing []string
	if assigneeIdx < 0 {
		missing = append(missing, q.opts.AssigneeColumn)
	}
	if statusIdx < 0 {
		missing = append(missing, q.opts.StatusColumn)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	q.header = header

	for _, row := range all[q.opts.HeaderRow:] {
		if row.Cell(assigneeIdx) != verifier {
			continue
		}
		if strings.TrimSpace(row.Cell(statusIdx)) != "" {
			continue
		}
		row.Header = header
		q.rows = append(q.rows, row)
	}

	q.logger.Info("queue loaded",
		zap.String("verifier", verifier),
		zap.Int("total_rows", len(all)),
		zap.Int("pending", len(q.rows)))
	return q.Rows(), nil
}

// Current 当前游标所指的行
func (q *Queue) Current() (model.SheetRow, bool) {
	if len(q.rows) == 0 || q.cursor >= len(q.rows) {
		return model.SheetRow{}, false
	}
	return q.rows[q.cursor], true
}

// Len 队列长度
func (q *Queue) Len() int { return len(q.rows) }

// Cursor 当前游标
func (q *Queue) Cursor() int { return q.cursor }

// Header 最近一次加载的表头
func (q *Queue) Header() []string {
	out := make([]string, len(q.header))
	copy(out, q.header)
	return out
}

// Rows 队列副本
func (q *Queue) Rows() []model.SheetRow {
	out := make([]model.SheetRow, len(q.rows))
	copy(out, q.rows)
	return out
}

// Select 将游标移动到 i
func (q *Queue) Select(i int) bool {
	if i < 0 || i >= len(q.rows) {
		return false
	}
	q.cursor = i
	return true
}

// Advance 决定提交成功后移除当前行
func (q *Queue) Advance() {
	if len(q.rows) == 0 {
		return
	}
	q.removeCurrent()
	q.normalizeCursor()
}

// Skip 标记当前行并按原因移到队尾或丢弃；标记失败只记录日志
func (q *Queue) Skip(ctx context.Context, reason SkipReason) {
	current, ok := q.Current()
	if !ok {
		return
	}

	if err := q.store.MarkSkip(ctx, current.RowIndex, reason.Mark()); err != nil {
		q.logger.Warn("failed to mark skipped row",
			zap.Int("row", current.RowIndex),
			zap.Stringer("reason", reason),
			zap.Error(err))
	}
	q.metrics.Skip(reason.String())

	if len(q.rows) == 1 {
		q.rows = []model.SheetRow{}
		q.cursor = 0
		return
	}

	q.removeCurrent()
	if reason == SkipNotReadyYet {
		q.rows = append(q.rows, current)
	}
	q.normalizeCursor()
}

func (q *Queue) removeCurrent() {
	q.rows = append(q.rows[:q.cursor:q.cursor], q.rows[q.cursor+1:]...)
}

func (q *Queue) normalizeCursor() {
	if len(q.rows) > 0 && q.cursor >= len(q.rows) {
		q.cursor = 0
	}
	if len(q.rows) == 0 {
		q.cursor = 0
	}
}
