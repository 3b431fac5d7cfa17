package review

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dkmverify/internal/model"
	"dkmverify/internal/service/auth"
	"dkmverify/internal/service/evaluation"
)

// ErrNothingReady 队列中剩余的行本轮均未就绪
var ErrNothingReady = errors.New("no pending case is ready on the portal")

// Preferences 本地偏好存储（记住最近的审核人）
type Preferences interface {
	SetConfig(ctx context.Context, key, value string) error
	GetConfigOr(ctx context.Context, key, fallback string) string
}

const prefLastVerifier = "last_verifier"

// SessionDeps 会话依赖
type SessionDeps struct {
	Queue     *Queue
	Fetcher   *Fetcher
	Submitter *Submitter
	Auth      Authenticator
	Rules     *evaluation.RuleTable
	Prefs     Preferences
	Logger    *zap.Logger
}

// CaseView 当前案件及比对结果
type CaseView struct {
	Case         *model.ReviewCase `json:"case"`
	Mismatches   map[string]bool   `json:"mismatches"`
	AddressMatch bool              `json:"addressMatch"`
}

// FormView 评估表单状态
type FormView struct {
	Values    map[string]string `json:"values"`
	Message   string            `json:"message"`
	Reason    string            `json:"reason"`
	Edited    bool              `json:"edited"`
	AtDefault bool              `json:"atDefault"`
	Suggested model.Decision    `json:"suggested"`
}

// Snapshot 会话快照
type Snapshot struct {
	Verifier    string           `json:"verifier"`
	Halted      bool             `json:"halted"`
	QueueLength int              `json:"queueLength"`
	Cursor      int              `json:"cursor"`
	Rows        []model.SheetRow `json:"rows"`
	Case        *CaseView        `json:"case,omitempty"`
	Form        FormView         `json:"form"`
	SubmitState string           `json:"submitState"`
}

// Session 单审核人的审核会话：一次只处理一个案件，所有操作串行
type Session struct {
	deps   SessionDeps
	engine *evaluation.Engine
	logger *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	verifier string
	current  *model.ReviewCase
	halted   bool
}

// NewSession 创建审核会话
func NewSession(deps SessionDeps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Session{
		deps:   deps,
		engine: evaluation.NewEngine(deps.Rules),
		logger: deps.Logger,
		base:   base,
		cancel: cancel,
	}
}

// scope 绑定会话生命周期：Close 时放弃进行中的调用
func (s *Session) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close 结束会话，进行中的网络调用被放弃
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) checkAuth(err error) {
	if auth.IsAuthFailure(err) {
		s.halted = true
		s.logger.Warn("session halted until re-authentication", zap.Error(err))
	}
}

// Load 加载审核人的待审队列；verifier 为空时使用门户登录名或最近一次的审核人
func (s *Session) Load(ctx context.Context, verifier string) (int, error) {
	ctx, done := s.scope(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		identity, err := s.deps.Auth.EnsureValid(ctx)
		if err != nil {
			s.checkAuth(err)
			return 0, err
		}
		s.halted = false
		verifier = identity
	}
	if verifier == "" && s.deps.Prefs != nil {
		verifier = s.deps.Prefs.GetConfigOr(ctx, prefLastVerifier, "")
	}
	if verifier == "" {
		return 0, ErrNoVerifier
	}

	rows, err := s.deps.Queue.Load(ctx, verifier)
	if err != nil {
		return 0, err
	}
	s.verifier = verifier
	s.clearCase()

	if s.deps.Prefs != nil {
		if err := s.deps.Prefs.SetConfig(ctx, prefLastVerifier, verifier); err != nil {
			s.logger.Warn("failed to remember verifier", zap.Error(err))
		}
	}
	return len(rows), nil
}

// Current 返回队首案件，必要时获取；未就绪的行自动跳到队尾
func (s *Session) Current(ctx context.Context) (*CaseView, error) {
	ctx, done := s.scope(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return nil, ErrHalted
	}
	if s.current != nil {
		if row, ok := s.deps.Queue.Current(); ok && row.RowIndex == s.current.Row.RowIndex {
			return s.caseView(), nil
		}
		s.clearCase()
	}

	autoSkipped := make(map[int]bool)
	for {
		row, ok := s.deps.Queue.Current()
		if !ok {
			return nil, ErrQueueEmpty
		}
		if autoSkipped[row.RowIndex] {
			return nil, ErrNothingReady
		}

		outcome, err := s.deps.Fetcher.Fetch(ctx, row)
		if err != nil {
			s.checkAuth(err)
			return nil, err
		}
		if outcome.AutoSkip {
			autoSkipped[row.RowIndex] = true
			s.deps.Queue.Skip(ctx, SkipNotReadyYet)
			continue
		}

		s.current = outcome.Case
		s.engine.Reset()
		s.deps.Submitter.Reset()
		return s.caseView(), nil
	}
}

// Skip 手动跳过当前行
func (s *Session) Skip(ctx context.Context, reason SkipReason) error {
	ctx, done := s.scope(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return ErrHalted
	}
	if s.deps.Queue.Len() == 0 {
		return ErrQueueEmpty
	}
	s.deps.Queue.Skip(ctx, reason)
	s.clearCase()
	return nil
}

// Select 将游标移动到指定位置
func (s *Session) Select(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deps.Queue.Select(i) {
		return false
	}
	if s.current != nil {
		if row, ok := s.deps.Queue.Current(); !ok || row.RowIndex != s.current.Row.RowIndex {
			s.clearCase()
		}
	}
	return true
}

// Decide 提交当前案件的决定，成功后推进队列
func (s *Session) Decide(ctx context.Context, decision model.Decision) (Result, error) {
	ctx, done := s.scope(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return Result{}, ErrHalted
	}
	if s.current == nil {
		return Result{}, ErrNoCase
	}

	result, err := s.deps.Submitter.Submit(ctx, s.current, s.engine, decision)
	if err != nil {
		s.checkAuth(err)
		return result, err
	}
	s.deps.Queue.Advance()
	s.clearCase()
	return result, nil
}

// Resume 重新认证后解除暂停
func (s *Session) Resume(ctx context.Context) (string, error) {
	ctx, done := s.scope(ctx)
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.deps.Auth.EnsureValid(ctx)
	if err != nil {
		s.checkAuth(err)
		return "", err
	}
	s.halted = false
	return identity, nil
}

// SetField 修改评估字段
func (s *Session) SetField(code, option string) (FormView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetField(code, option); err != nil {
		return s.formView(), err
	}
	return s.formView(), nil
}

// SetReason 修改拒绝理由文本
func (s *Session) SetReason(text string) FormView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.SetReason(text)
	return s.formView()
}

// ResetForm 表单恢复默认
func (s *Session) ResetForm() FormView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	return s.formView()
}

// Rules 当前规则表
func (s *Session) Rules() *evaluation.RuleTable {
	return s.engine.Rules()
}

// StaffSearch 在当前案件的登记库记录中查找教职工
func (s *Session) StaffSearch(query string) ([]model.StaffMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoCase
	}
	return s.current.Registry.SearchStaff(query), nil
}

// Snapshot 返回会话快照
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Verifier:    s.verifier,
		Halted:      s.halted,
		QueueLength: s.deps.Queue.Len(),
		Cursor:      s.deps.Queue.Cursor(),
		Rows:        s.deps.Queue.Rows(),
		Form:        s.formView(),
		SubmitState: s.deps.Submitter.State().String(),
	}
	if s.current != nil {
		snap.Case = s.caseView()
	}
	return snap
}

func (s *Session) clearCase() {
	s.current = nil
	s.engine.Reset()
	s.deps.Submitter.Reset()
}

func (s *Session) caseView() *CaseView {
	rc := s.current
	return &CaseView{
		Case:         rc,
		Mismatches:   DetectMismatches(rc.Portal.SchoolFields, rc.Registry),
		AddressMatch: AddressMatches(rc.Portal.SchoolFields, rc.Registry),
	}
}

func (s *Session) formView() FormView {
	return FormView{
		Values:    s.engine.Values(),
		Message:   s.engine.RejectionMessage(),
		Reason:    s.engine.Reason(),
		Edited:    s.engine.ReasonEdited(),
		AtDefault: s.engine.IsAtDefault(),
		Suggested: s.engine.SuggestedDecision(),
	}
}
