package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkmverify/internal/model"
	"dkmverify/internal/service/auth"
	"dkmverify/internal/sheet"
)

type fakePrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *fakePrefs) SetConfig(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[key] = value
	return nil
}

func (f *fakePrefs) GetConfigOr(ctx context.Context, key, fallback string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v
	}
	return fallback
}

type sessionFixture struct {
	auth    *fakeAuth
	portal  *fakePortal
	sheet   *fakeSheet
	log     *fakeLog
	prefs   *fakePrefs
	session *Session
}

const link7 = "r_detail.php?id=7&npsn=20200007&status=1&note="

// newSessionFixture 第 4 行（20200005）未就绪，第 5 行（20200007）就绪
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	fx := &sessionFixture{
		auth:   &fakeAuth{identity: "A", cookie: "sess-1"},
		portal: newFakePortal(),
		sheet:  sheetWith(row("20200005", "A", ""), row("20200007", "A", ""), row("20200009", "B", "")),
		log:    &fakeLog{},
		prefs:  &fakePrefs{},
	}
	fx.portal.notReady("20200005")
	fx.portal.ready("20200007", link7, sampleDetail())
	reg := &fakeRegistry{records: map[string]*model.RegistryRecord{
		"20200005": sampleRecord(),
		"20200007": sampleRecord(),
	}}

	fx.session = NewSession(SessionDeps{
		Queue:   NewQueue(fx.sheet, DefaultQueueOptions(), nil, nil),
		Fetcher: NewFetcher(fx.auth, fx.portal, reg, "NPSN", nil, nil),
		Submitter: NewSubmitter(fx.auth, fx.portal, fx.sheet, fx.log, SubmitOptions{
			AcceptedStatus: "3",
			RejectedStatus: "4",
		}, nil, nil),
		Auth:  fx.auth,
		Prefs: fx.prefs,
	})
	t.Cleanup(fx.session.Close)
	return fx
}

// TestSessionAutoSkipNotReady 测试未就绪行自动移到队尾
func TestSessionAutoSkipNotReady(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	n, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	view, err := fx.session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20200007", view.Case.Key)
	assert.Equal(t, 5, view.Case.Row.RowIndex)
	assert.True(t, view.Mismatches["PIC"])
	assert.True(t, view.AddressMatch)

	snap := fx.session.Snapshot()
	assert.Equal(t, []int{5, 4}, rowIndexes(snap.Rows))
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, []markCall{{Row: 4, Mark: sheet.MarkNotReady}}, fx.sheet.marks)

	// 再次获取不会重复访问门户
	calls := fx.portal.listCalls
	_, err = fx.session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, fx.portal.listCalls)
}

// TestSessionNothingReady 测试全部未就绪时停止而不是无限循环
func TestSessionNothingReady(t *testing.T) {
	fx := newSessionFixture(t)
	fx.portal.notReady("20200007")
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)

	_, err = fx.session.Current(ctx)
	assert.ErrorIs(t, err, ErrNothingReady)
	assert.Equal(t, 2, fx.portal.listCalls)
	assert.Equal(t, 2, fx.session.Snapshot().QueueLength)
}

// TestSessionEmptyQueue 测试空队列
func TestSessionEmptyQueue(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	n, err := fx.session.Load(ctx, "Z")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = fx.session.Current(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.ErrorIs(t, fx.session.Skip(ctx, SkipDataInvalid), ErrQueueEmpty)
}

// TestSessionLoadVerifierFallback 测试审核人为空时使用门户登录名
func TestSessionLoadVerifierFallback(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	n, err := fx.session.Load(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "A", fx.session.Snapshot().Verifier)
	assert.Equal(t, "A", fx.prefs.GetConfigOr(ctx, prefLastVerifier, ""))

	// 门户未返回登录名时使用最近一次的审核人
	fx.auth.identity = ""
	fx.prefs.values[prefLastVerifier] = "B"
	n, err = fx.session.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fx.prefs.values = nil
	_, err = fx.session.Load(ctx, "")
	assert.ErrorIs(t, err, ErrNoVerifier)
}

// TestSessionAuthFailureHalts 测试凭证失效后暂停直到恢复
func TestSessionAuthFailureHalts(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)

	fx.auth.fail()
	_, err = fx.session.Current(ctx)
	assert.True(t, auth.IsAuthFailure(err))
	assert.True(t, fx.session.Snapshot().Halted)

	_, err = fx.session.Current(ctx)
	assert.ErrorIs(t, err, ErrHalted)
	assert.ErrorIs(t, fx.session.Skip(ctx, SkipNotReadyYet), ErrHalted)
	_, err = fx.session.Decide(ctx, model.DecisionAccept)
	assert.ErrorIs(t, err, ErrHalted)

	// 仍然失效时保持暂停
	_, err = fx.session.Resume(ctx)
	assert.True(t, auth.IsAuthFailure(err))
	assert.True(t, fx.session.Snapshot().Halted)

	fx.auth.restore()
	identity, err := fx.session.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", identity)

	view, err := fx.session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20200007", view.Case.Key)
}

// TestSessionDecideAdvances 测试提交成功后推进并清空表单
func TestSessionDecideAdvances(t *testing.T) {
	fx := newSessionFixture(t)
	fx.portal.ready("20200005", "r_detail.php?id=5&npsn=20200005&status=1", sampleDetail())
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)
	view, err := fx.session.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, "20200005", view.Case.Key)

	_, err = fx.session.Decide(ctx, model.DecisionReject)
	assert.ErrorIs(t, err, ErrEmptyRationale)

	form, err := fx.session.SetField("T", "Tidak Ada")
	require.NoError(t, err)
	assert.Equal(t, "Stempel tidak ada", form.Reason)
	assert.Equal(t, model.DecisionReject, form.Suggested)

	res, err := fx.session.Decide(ctx, model.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCommitted, res.Outcome)
	assert.Equal(t, "id=5&npsn=20200005&status=4&note=Stempel+tidak+ada", fx.portal.submitted[0].Encode())

	snap := fx.session.Snapshot()
	assert.Equal(t, 1, snap.QueueLength)
	assert.Nil(t, snap.Case)
	assert.True(t, snap.Form.AtDefault)
	assert.Equal(t, "idle", snap.SubmitState)

	_, err = fx.session.Decide(ctx, model.DecisionAccept)
	assert.ErrorIs(t, err, ErrNoCase)

	view, err = fx.session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20200007", view.Case.Key)
}

// TestSessionDecideFailureKeepsCase 测试提交失败时案件与队列不变
func TestSessionDecideFailureKeepsCase(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)
	_, err = fx.session.Current(ctx)
	require.NoError(t, err)

	fx.portal.submitErr = errors.New("connection reset")
	_, err = fx.session.Decide(ctx, model.DecisionAccept)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))

	snap := fx.session.Snapshot()
	assert.Equal(t, 2, snap.QueueLength)
	require.NotNil(t, snap.Case)
	assert.Equal(t, "20200007", snap.Case.Case.Key)
}

// TestSessionManualSkip 测试手动跳过清除当前案件
func TestSessionManualSkip(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)
	_, err = fx.session.Current(ctx)
	require.NoError(t, err)

	require.NoError(t, fx.session.Skip(ctx, SkipDataInvalid))
	snap := fx.session.Snapshot()
	assert.Equal(t, []int{4}, rowIndexes(snap.Rows))
	assert.Nil(t, snap.Case)
}

// TestSessionSelectClearsCase 测试切换行后重新获取
func TestSessionSelectClearsCase(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)
	_, err = fx.session.Current(ctx)
	require.NoError(t, err)
	_, err = fx.session.SetField("J", "Tidak Sesuai")
	require.NoError(t, err)

	assert.False(t, fx.session.Select(9))
	assert.NotNil(t, fx.session.Snapshot().Case)

	assert.True(t, fx.session.Select(1))
	snap := fx.session.Snapshot()
	assert.Nil(t, snap.Case)
	assert.True(t, snap.Form.AtDefault)
}

// TestSessionStaffSearch 测试教职工查找
func TestSessionStaffSearch(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.StaffSearch("budi")
	assert.ErrorIs(t, err, ErrNoCase)

	_, err = fx.session.Load(ctx, "A")
	require.NoError(t, err)
	_, err = fx.session.Current(ctx)
	require.NoError(t, err)

	staff, err := fx.session.StaffSearch("budi")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Budi Santoso", staff[0].Name)
}

// TestSessionCloseAbandonsFetch 测试关闭会话时放弃进行中的获取
func TestSessionCloseAbandonsFetch(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.session.Load(ctx, "A")
	require.NoError(t, err)

	fx.portal.mu.Lock()
	fx.portal.block = true
	fx.portal.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := fx.session.Current(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		fx.portal.mu.Lock()
		defer fx.portal.mu.Unlock()
		return fx.portal.listCalls > 0
	}, time.Second, 5*time.Millisecond)

	fx.session.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not abandoned after Close")
	}
}
