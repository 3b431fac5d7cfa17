package model

import (
	"fmt"
	"strings"
	"time"
)

// Decision 审核决定
type Decision string

const (
	DecisionAccept Decision = "accept" // 接受 (TERIMA)
	DecisionReject Decision = "reject" // 拒绝 (TOLAK)
)

// ParseDecision 解析决定字符串
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "terima":
		return DecisionAccept, nil
	case "reject", "tolak":
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("unknown decision: %q", s)
	}
}

// Outcome 决定提交结果
type Outcome string

const (
	OutcomeCommitted    Outcome = "committed"     // 门户与表格均写入成功
	OutcomeAuthFailed   Outcome = "auth_failed"   // 凭证失效，未写入
	OutcomePortalFailed Outcome = "portal_failed" // 门户写入失败，未写表格
	OutcomeStoreFailed  Outcome = "store_failed"  // 门户已写入，表格写入失败（需人工对账）
)

// Credential 门户会话凭证
type Credential struct {
	Cookie    string    `json:"cookie"`   // PHPSESSID
	Identity  string    `json:"identity"` // 门户显示的登录名
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanRelogin 是否保存了重新登录所需的用户名和密码
func (c Credential) CanRelogin() bool {
	return c.Username != "" && c.Password != ""
}

// DecisionRecord 决定审计日志
type DecisionRecord struct {
	ID        string    `json:"id"`
	RowIndex  int       `json:"rowIndex"`
	CaseKey   string    `json:"caseKey"`
	Verifier  string    `json:"verifier"`
	Decision  Decision  `json:"decision"`
	Rationale string    `json:"rationale"`
	Edited    bool      `json:"edited"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}
