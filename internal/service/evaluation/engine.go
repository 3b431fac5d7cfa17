package evaluation

import (
	"fmt"
	"strings"

	"dkmverify/internal/model"
)

// MessageSeparator 拒绝理由拼接分隔符
const MessageSeparator = ", "

// Engine 评估表状态与拒绝理由推导
//
// 表单始终覆盖规则表中的全部字段，每个字段恰好选中一个选项。
// 自由文本理由默认跟随自动生成的理由，审核员修改后不再跟随。
type Engine struct {
	rules  *RuleTable
	values map[string]string

	auto   string // 最近一次自动生成的理由
	reason string // 当前理由文本
}

// NewEngine 创建评估引擎，表单初始化为默认值
func NewEngine(rules *RuleTable) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	e := &Engine{rules: rules}
	e.Reset()
	return e
}

// Rules 返回规则表
func (e *Engine) Rules() *RuleTable {
	return e.rules
}

// Reset 表单恢复默认值并清空理由（每个新案件调用）
func (e *Engine) Reset() {
	e.values = e.rules.Defaults()
	e.auto = ""
	e.reason = ""
}

// SetField 设置字段选项
func (e *Engine) SetField(code, option string) error {
	field, ok := e.rules.Field(code)
	if !ok {
		return fmt.Errorf("unknown evaluation field: %s", code)
	}
	if !field.HasOption(option) {
		return fmt.Errorf("field %s: unknown option %q", code, option)
	}

	followsAuto := e.reason == e.auto
	e.values[code] = option
	e.auto = e.RejectionMessage()
	if followsAuto {
		e.reason = e.auto
	}
	return nil
}

// Value 返回字段当前选项
func (e *Engine) Value(code string) string {
	return e.values[code]
}

// Values 返回表单快照（列字母 → 选项）
func (e *Engine) Values() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// IsAtDefault 所有字段为默认值且未另行填写理由
func (e *Engine) IsAtDefault() bool {
	for _, f := range e.rules.Fields {
		if e.values[f.Code] != f.Default {
			return false
		}
	}
	return !e.ReasonEdited()
}

// RejectionMessage 按字段声明顺序拼接拒绝理由
func (e *Engine) RejectionMessage() string {
	return RejectionMessage(e.rules, e.values)
}

// RejectionMessage 根据表单快照推导拒绝理由（纯函数）
func RejectionMessage(rules *RuleTable, values map[string]string) string {
	parts := make([]string, 0)
	for _, f := range rules.Fields {
		current := values[f.Code]
		specific, hasSpecific := f.Overrides[current]
		if current == f.Default && !hasSpecific {
			continue
		}
		if hasSpecific {
			parts = append(parts, specific)
		} else {
			parts = append(parts, f.Generic)
		}
	}
	return strings.Join(parts, MessageSeparator)
}

// SetReason 审核员填写（覆盖）理由文本
func (e *Engine) SetReason(text string) {
	e.reason = text
}

// Reason 当前理由文本
func (e *Engine) Reason() string {
	return e.reason
}

// ReasonEdited 理由是否被审核员修改过（与自动理由不同且非空）
func (e *Engine) ReasonEdited() bool {
	trimmed := strings.TrimSpace(e.reason)
	return trimmed != "" && trimmed != strings.TrimSpace(e.RejectionMessage())
}

// Rationale 提交时使用的理由：修改过的文本优先，否则为自动理由
func (e *Engine) Rationale() string {
	if e.ReasonEdited() {
		return strings.TrimSpace(e.reason)
	}
	return e.RejectionMessage()
}

// SuggestedDecision 表单为默认时建议接受，否则建议拒绝
func (e *Engine) SuggestedDecision() model.Decision {
	if e.IsAtDefault() {
		return model.DecisionAccept
	}
	return model.DecisionReject
}
