package evaluation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// FieldRule 单个评估字段的规则（纯数据）
type FieldRule struct {
	Code      string            `yaml:"code" json:"code"`           // 列字母，同时作为字段编码
	Label     string            `yaml:"label" json:"label"`         // 显示名称
	Default   string            `yaml:"default" json:"default"`     // 默认（合格）选项
	Options   []string          `yaml:"options" json:"options"`     // 可选项
	Generic   string            `yaml:"generic" json:"generic"`     // 任意非默认选项的通用理由
	Overrides map[string]string `yaml:"overrides" json:"overrides"` // 特定选项 → 特定理由
	Images    []int             `yaml:"images" json:"images"`       // 相关文档图片序号
}

// HasOption 选项是否属于该字段
func (f FieldRule) HasOption(option string) bool {
	return slices.Contains(f.Options, option)
}

// RuleTable 评估规则表（字段按声明顺序排列）
type RuleTable struct {
	Fields []FieldRule `yaml:"fields" json:"fields"`
}

// DefaultRules 返回内置规则表
func DefaultRules() *RuleTable {
	table, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules invalid: %v", err))
	}
	return table
}

// LoadRules 从 yaml 文件加载规则表，path 为空时返回内置规则
func LoadRules(path string) (*RuleTable, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules 解析并校验规则表
func ParseRules(data []byte) (*RuleTable, error) {
	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate 校验规则表不变量
func (t *RuleTable) Validate() error {
	if len(t.Fields) == 0 {
		return errors.New("rules: no fields declared")
	}

	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Code == "" {
			return errors.New("rules: field without code")
		}
		if seen[f.Code] {
			return fmt.Errorf("rules: duplicate field %s", f.Code)
		}
		seen[f.Code] = true

		if !f.HasOption(f.Default) {
			return fmt.Errorf("rules: field %s default %q not in options", f.Code, f.Default)
		}
		if f.Generic == "" {
			return fmt.Errorf("rules: field %s has no generic message", f.Code)
		}
		for option := range f.Overrides {
			if option == f.Default {
				return fmt.Errorf("rules: field %s overrides its default option", f.Code)
			}
			if !f.HasOption(option) {
				return fmt.Errorf("rules: field %s override %q not in options", f.Code, option)
			}
		}
	}
	return nil
}

// Field 按编码查找字段规则
func (t *RuleTable) Field(code string) (FieldRule, bool) {
	for _, f := range t.Fields {
		if f.Code == code {
			return f, true
		}
	}
	return FieldRule{}, false
}

// Defaults 返回所有字段的默认选项
func (t *RuleTable) Defaults() map[string]string {
	out := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Code] = f.Default
	}
	return out
}

// FieldsForImage 返回与第 index 张文档图片相关的字段
func (t *RuleTable) FieldsForImage(index int) []FieldRule {
	out := make([]FieldRule, 0)
	for _, f := range t.Fields {
		if slices.Contains(f.Images, index) {
			out = append(out, f)
		}
	}
	return out
}
