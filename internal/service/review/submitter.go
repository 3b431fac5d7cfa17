package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dkmverify/internal/metrics"
	"dkmverify/internal/model"
	"dkmverify/internal/portal"
	"dkmverify/internal/service/evaluation"
	"dkmverify/internal/sheet"
)

// ErrAlreadyCommitted 该案件的决定已经提交
var ErrAlreadyCommitted = errors.New("decision already committed for this case")

// SubmitState 提交状态机
type SubmitState int

const (
	StateIdle SubmitState = iota
	StateSubmitting
	StateCommitted
	StateFailed
)

func (s SubmitState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DecisionLog 决定审计日志
type DecisionLog interface {
	AppendDecision(ctx context.Context, rec model.DecisionRecord) error
}

// SubmitOptions 门户写入参数
type SubmitOptions struct {
	StatusParam    string // 状态参数名
	NoteParam      string // 理由参数名
	AcceptedStatus string // 接受状态码
	RejectedStatus string // 拒绝状态码
}

// Result 提交结果
type Result struct {
	RecordID  string         `json:"recordId"`
	Decision  model.Decision `json:"decision"`
	Outcome   model.Outcome  `json:"outcome"`
	Rationale string         `json:"rationale,omitempty"`
	Edited    bool           `json:"edited"`
}

// Submitter 决定提交器：门户写入 → 表格写回，均成功才视为提交
type Submitter struct {
	auth    Authenticator
	portal  portal.Client
	store   sheet.Store
	log     DecisionLog
	opts    SubmitOptions
	logger  *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	mu        sync.Mutex
	state     SubmitState
	committed string // 已提交案件 ID
}

// NewSubmitter 创建提交器；log 可为 nil
func NewSubmitter(auth Authenticator, client portal.Client, store sheet.Store, log DecisionLog, opts SubmitOptions, logger *zap.Logger, rec *metrics.Recorder) *Submitter {
	if opts.StatusParam == "" {
		opts.StatusParam = "status"
	}
	if opts.NoteParam == "" {
		opts.NoteParam = "note"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		auth:    auth,
		portal:  client,
		store:   store,
		log:     log,
		opts:    opts,
		logger:  logger,
		metrics: rec,
		now:     time.Now,
	}
}

// State 当前状态
func (s *Submitter) State() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset 切换到新案件时回到 Idle
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.committed = ""
}

func (s *Submitter) begin(caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.committed != "" && s.committed == caseID {
		return ErrAlreadyCommitted
	}
	s.state = StateSubmitting
	return nil
}

func (s *Submitter) finish(caseID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.state = StateCommitted
		s.committed = caseID
		return
	}
	// 失败后回到 Idle，允许人工重试
	s.state = StateIdle
}

// BuildParams 由案件路由参数生成门户写入参数，仅替换状态与理由
func (s *Submitter) BuildParams(rc *model.ReviewCase, decision model.Decision, rationale string) model.RoutingParams {
	code := s.opts.AcceptedStatus
	if decision == model.DecisionReject {
		code = s.opts.RejectedStatus
	}
	params := rc.Portal.Routing.With(s.opts.StatusParam, code)
	if decision == model.DecisionReject {
		params = params.With(s.opts.NoteParam, rationale)
	}
	return params
}

// Submit 提交决定。失败时队列与案件保持不变，由调用方决定是否重试；
// 成功后调用方负责 Queue.Advance。
func (s *Submitter) Submit(ctx context.Context, rc *model.ReviewCase, form *evaluation.Engine, decision model.Decision) (Result, error) {
	if rc == nil {
		return Result{}, ErrNoCase
	}
	if decision != model.DecisionAccept && decision != model.DecisionReject {
		return Result{}, fmt.Errorf("unknown decision %q", decision)
	}

	result := Result{RecordID: uuid.NewString(), Decision: decision}
	if decision == model.DecisionReject {
		result.Rationale = strings.TrimSpace(form.Rationale())
		result.Edited = form.ReasonEdited()
		if result.Rationale == "" {
			return Result{}, ErrEmptyRationale
		}
	}

	if err := s.begin(rc.ID); err != nil {
		return Result{}, err
	}

	verifier, err := s.auth.EnsureValid(ctx)
	if err != nil {
		result.Outcome = model.OutcomeAuthFailed
		s.fail(ctx, rc, result, verifier, err)
		return result, err
	}
	cookie, err := s.auth.Cookie(ctx)
	if err != nil {
		result.Outcome = model.OutcomeAuthFailed
		s.fail(ctx, rc, result, verifier, err)
		return result, err
	}

	params := s.BuildParams(rc, decision, result.Rationale)
	start := time.Now()
	err = s.portal.Submit(ctx, cookie, params)
	s.metrics.ObserveUpstream("portal", start)
	if err != nil {
		result.Outcome = model.OutcomePortalFailed
		err = portalError("submit", err)
		s.fail(ctx, rc, result, verifier, err)
		return result, err
	}

	update := sheet.UpdateRequest{RowIndex: rc.Row.RowIndex, Values: formValues(form)}
	if decision == model.DecisionReject && result.Edited {
		note := result.Rationale
		update.Note = &note
	}
	start = time.Now()
	err = s.store.Update(ctx, update)
	s.metrics.ObserveUpstream("sheet", start)
	if err != nil {
		result.Outcome = model.OutcomeStoreFailed
		err = &StoreError{RowIndex: rc.Row.RowIndex, Err: err}
		s.logger.Error("portal updated but sheet write failed; manual reconciliation needed",
			zap.Int("row", rc.Row.RowIndex),
			zap.String("npsn", rc.Key),
			zap.String("decision", string(decision)),
			zap.Error(err))
		s.fail(ctx, rc, result, verifier, err)
		return result, err
	}

	result.Outcome = model.OutcomeCommitted
	s.finish(rc.ID, true)
	s.record(ctx, rc, result, verifier, "")
	s.logger.Info("decision committed",
		zap.Int("row", rc.Row.RowIndex),
		zap.String("npsn", rc.Key),
		zap.String("decision", string(decision)),
		zap.Bool("edited", result.Edited))
	return result, nil
}

func (s *Submitter) fail(ctx context.Context, rc *model.ReviewCase, result Result, verifier string, err error) {
	s.finish(rc.ID, false)
	s.record(ctx, rc, result, verifier, err.Error())
	if result.Outcome != model.OutcomeStoreFailed {
		s.logger.Warn("decision submit failed",
			zap.Int("row", rc.Row.RowIndex),
			zap.String("npsn", rc.Key),
			zap.String("outcome", string(result.Outcome)),
			zap.Error(err))
	}
}

func (s *Submitter) record(ctx context.Context, rc *model.ReviewCase, result Result, verifier, detail string) {
	s.metrics.Decision(string(result.Decision), string(result.Outcome))
	if s.log == nil {
		return
	}
	rec := model.DecisionRecord{
		ID:        result.RecordID,
		RowIndex:  rc.Row.RowIndex,
		CaseKey:   rc.Key,
		Verifier:  verifier,
		Decision:  result.Decision,
		Rationale: result.Rationale,
		Edited:    result.Edited,
		Outcome:   result.Outcome,
		Detail:    detail,
		CreatedAt: s.now(),
	}
	// 审计记录不受调用方取消影响
	if err := s.log.AppendDecision(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to append decision record", zap.String("id", rec.ID), zap.Error(err))
	}
}

func formValues(form *evaluation.Engine) map[string]any {
	values := form.Values()
	out := make(map[string]any, len(values))
	for code, v := range values {
		out[code] = v
	}
	return out
}
