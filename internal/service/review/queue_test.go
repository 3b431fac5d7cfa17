package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkmverify/internal/model"
	"dkmverify/internal/sheet"
)

func rowIndexes(rows []model.SheetRow) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.RowIndex
	}
	return out
}

// newScenarioQueue 表格第 5、6、7 行分别分配给 A、B、A，状态均为空
func newScenarioQueue(t *testing.T) (*Queue, *fakeSheet) {
	t.Helper()
	store := &fakeSheet{rows: []model.SheetRow{
		{RowIndex: 1, Cells: []any{"DAFTAR"}},
		{RowIndex: 2, Cells: []any{}},
		{RowIndex: 3, Cells: testHeader},
		{RowIndex: 4, Cells: row("20200004", "A", "DITERIMA")},
		{RowIndex: 5, Cells: row("20200005", "A", "")},
		{RowIndex: 6, Cells: row("20200006", "B", "")},
		{RowIndex: 7, Cells: row("20200007", "A", "")},
	}}
	return NewQueue(store, DefaultQueueOptions(), nil, nil), store
}

// TestQueueLoadFiltersByVerifier 测试按审核人与空状态筛选
func TestQueueLoadFiltersByVerifier(t *testing.T) {
	q, _ := newScenarioQueue(t)

	rows, err := q.Load(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 7}, rowIndexes(rows))
	assert.Equal(t, 0, q.Cursor())

	// 行附带表头，便于按列名取值
	npsn, ok := rows[0].Column("NPSN")
	assert.True(t, ok)
	assert.Equal(t, "20200005", npsn)
}

// TestQueueLoadStatusWhitespace 测试状态仅含空白视为空，审核人精确匹配
func TestQueueLoadStatusWhitespace(t *testing.T) {
	store := sheetWith(
		row("1", "A", "   "),
		row("2", "a", ""),
		row("3", "A ", ""),
		row("4", "A", "DITOLAK"),
		[]any{5, "5", "SD", "A"}, // 状态列缺失
	)
	q := NewQueue(store, DefaultQueueOptions(), nil, nil)

	rows, err := q.Load(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 8}, rowIndexes(rows))
}

// TestQueueLoadSchemaError 测试缺少必需列
func TestQueueLoadSchemaError(t *testing.T) {
	store := &fakeSheet{rows: []model.SheetRow{
		{RowIndex: 1, Cells: []any{}},
		{RowIndex: 2, Cells: []any{}},
		{RowIndex: 3, Cells: []any{"NO", "NPSN", "Verifikator"}},
		{RowIndex: 4, Cells: []any{1, "2", "A"}},
	}}
	q := NewQueue(store, DefaultQueueOptions(), nil, nil)

	_, err := q.Load(context.Background(), "A")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"VERIFIKATOR", "STATUS (DITERIMA/DITOLAK)"}, schemaErr.Missing)
	assert.Equal(t, 0, q.Len())
}

// TestQueueLoadShortSheet 测试行数不足表头位置时为空队列
func TestQueueLoadShortSheet(t *testing.T) {
	store := &fakeSheet{rows: []model.SheetRow{{RowIndex: 1, Cells: []any{"DAFTAR"}}}}
	q := NewQueue(store, DefaultQueueOptions(), nil, nil)

	rows, err := q.Load(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, ok := q.Current()
	assert.False(t, ok)
}

func loadThree(t *testing.T) (*Queue, *fakeSheet) {
	t.Helper()
	store := sheetWith(row("1", "A", ""), row("2", "A", ""), row("3", "A", ""))
	q := NewQueue(store, DefaultQueueOptions(), nil, nil)
	_, err := q.Load(context.Background(), "A")
	require.NoError(t, err)
	require.Equal(t, []int{4, 5, 6}, rowIndexes(q.Rows()))
	return q, store
}

// TestSkipNotReadyMovesToEnd 测试未就绪跳过移到队尾
func TestSkipNotReadyMovesToEnd(t *testing.T) {
	q, store := loadThree(t)
	require.True(t, q.Select(1))

	q.Skip(context.Background(), SkipReasonFromValidity(false))

	assert.Equal(t, []int{4, 6, 5}, rowIndexes(q.Rows()))
	assert.Equal(t, 1, q.Cursor())
	assert.Equal(t, []markCall{{Row: 5, Mark: sheet.MarkNotReady}}, store.marks)
}

// TestSkipDataInvalidDiscards 测试数据无效跳过直接丢弃
func TestSkipDataInvalidDiscards(t *testing.T) {
	q, store := loadThree(t)
	require.True(t, q.Select(1))

	q.Skip(context.Background(), SkipReasonFromValidity(true))

	assert.Equal(t, []int{4, 6}, rowIndexes(q.Rows()))
	assert.Equal(t, 1, q.Cursor())
	assert.Equal(t, []markCall{{Row: 5, Mark: sheet.MarkSkipped}}, store.marks)
}

// TestSkipAtEndResetsCursor 测试游标越界后归零
func TestSkipAtEndResetsCursor(t *testing.T) {
	q, _ := loadThree(t)
	require.True(t, q.Select(2))

	q.Skip(context.Background(), SkipDataInvalid)
	assert.Equal(t, []int{4, 5}, rowIndexes(q.Rows()))
	assert.Equal(t, 0, q.Cursor())

	// 未就绪跳过最后一行：移除后重新追加，游标仍有效
	require.True(t, q.Select(1))
	q.Skip(context.Background(), SkipNotReadyYet)
	assert.Equal(t, []int{4, 5}, rowIndexes(q.Rows()))
	assert.Equal(t, 1, q.Cursor())
}

// TestSkipSingleItemClears 测试只有一项时直接清空
func TestSkipSingleItemClears(t *testing.T) {
	store := sheetWith(row("1", "A", ""))
	q := NewQueue(store, DefaultQueueOptions(), nil, nil)
	_, err := q.Load(context.Background(), "A")
	require.NoError(t, err)

	q.Skip(context.Background(), SkipNotReadyYet)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []markCall{{Row: 4, Mark: sheet.MarkNotReady}}, store.marks)

	// 空队列上跳过无操作
	q.Skip(context.Background(), SkipNotReadyYet)
	assert.Len(t, store.marks, 1)
}

// TestSkipMarkFailureStillRemoves 测试标记失败不影响本地队列
func TestSkipMarkFailureStillRemoves(t *testing.T) {
	q, store := loadThree(t)
	store.markErr = errors.New("quota exceeded")

	q.Skip(context.Background(), SkipDataInvalid)
	assert.Equal(t, []int{5, 6}, rowIndexes(q.Rows()))
}

// TestAdvance 测试提交后推进
func TestAdvance(t *testing.T) {
	q, _ := loadThree(t)
	require.True(t, q.Select(2))

	q.Advance()
	assert.Equal(t, []int{4, 5}, rowIndexes(q.Rows()))
	assert.Equal(t, 0, q.Cursor())

	q.Advance()
	q.Advance()
	assert.Equal(t, 0, q.Len())
	q.Advance()
	assert.Equal(t, 0, q.Cursor())
}

func TestRowsIsCopy(t *testing.T) {
	q, _ := loadThree(t)
	rows := q.Rows()
	q.Advance()
	assert.Equal(t, []int{4, 5, 6}, rowIndexes(rows))
	assert.False(t, q.Select(5))
}

func TestSkipReasons(t *testing.T) {
	assert.Equal(t, SkipNotReadyYet, SkipReasonFromValidity(false))
	assert.Equal(t, SkipDataInvalid, SkipReasonFromValidity(true))
	assert.Equal(t, sheet.MarkNotReady, SkipNotReadyYet.Mark())
	assert.Equal(t, sheet.MarkSkipped, SkipDataInvalid.Mark())

	r, ok := ParseSkipReason("data_invalid")
	assert.True(t, ok)
	assert.Equal(t, SkipDataInvalid, r)
	_, ok = ParseSkipReason("later")
	assert.False(t, ok)
}
