package review

import (
	"errors"
	"fmt"
	"strings"

	"dkmverify/internal/service/auth"
)

var (
	// ErrSubmitInProgress 同一案件已有提交在进行中
	ErrSubmitInProgress = errors.New("submit already in progress")
	// ErrEmptyRationale 拒绝时理由为空
	ErrEmptyRationale = errors.New("rejection requires a rationale")
	// ErrNoCase 当前没有可审核的案件
	ErrNoCase = errors.New("no case loaded")
	// ErrQueueEmpty 队列为空
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrHalted 会话因凭证失效而暂停，需重新认证
	ErrHalted = errors.New("session halted: re-authentication required")
	// ErrNoVerifier 未确定审核人
	ErrNoVerifier = errors.New("verifier identity unknown")
)

// AuthFailure 为 auth.AuthFailure 的别名，便于调用方统一匹配
type AuthFailure = auth.AuthFailure

// SchemaError 表头缺少必需列，队列无法加载
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sheet header missing column(s): %s", strings.Join(e.Missing, ", "))
}

// MissingKeyError 案件缺少查找键（NPSN），只能手动跳过
type MissingKeyError struct {
	RowIndex int
	Column   string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("row %d: missing case key %q", e.RowIndex, e.Column)
}

// FetchError 门户读写返回非成功状态
type FetchError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("portal %s: status %d: %s", e.Op, e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("portal %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("portal %s: %s", e.Op, e.Detail)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// RegistryError 登记库查询失败，Status 为上游状态码（传输错误时为 0）
type RegistryError struct {
	Key    string
	Status int
	Err    error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry lookup %s failed (status %d): %v", e.Key, e.Status, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// StoreError 表格写回失败；门户可能已经写入
type StoreError struct {
	RowIndex int
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("sheet update row %d failed: %v", e.RowIndex, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
