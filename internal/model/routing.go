package model

import (
	"net/url"
	"strings"
)

// Param 详情链接中的单个查询参数，Raw 保留原始编码片段
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Raw   string `json:"raw"`
}

// RoutingParams 从门户详情链接中提取的路由参数（保持原始顺序）
type RoutingParams []Param

// ParseRouting 解析 path?query 形式的链接，返回路径与有序参数
func ParseRouting(link string) (string, RoutingParams) {
	path, query, _ := strings.Cut(link, "?")
	if query == "" {
		return path, RoutingParams{}
	}

	params := make(RoutingParams, 0, strings.Count(query, "&")+1)
	for _, seg := range strings.Split(query, "&") {
		if seg == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(seg, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			value = rawValue
		}
		params = append(params, Param{Key: key, Value: value, Raw: seg})
	}
	return path, params
}

// Get 返回首个同名参数的值
func (p RoutingParams) Get(key string) string {
	for _, param := range p {
		if param.Key == key {
			return param.Value
		}
	}
	return ""
}

// Clone 复制参数列表
func (p RoutingParams) Clone() RoutingParams {
	out := make(RoutingParams, len(p))
	copy(out, p)
	return out
}

// With 返回替换（或追加）指定参数后的副本，其余参数原样保留
func (p RoutingParams) With(key, value string) RoutingParams {
	out := p.Clone()
	seg := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	for i := range out {
		if out[i].Key == key {
			out[i] = Param{Key: key, Value: value, Raw: seg}
			return out
		}
	}
	return append(out, Param{Key: key, Value: value, Raw: seg})
}

// Encode 按原始顺序编码；未修改的参数使用原始片段，保证字节一致
func (p RoutingParams) Encode() string {
	parts := make([]string, 0, len(p))
	for _, param := range p {
		if param.Raw != "" {
			parts = append(parts, param.Raw)
			continue
		}
		parts = append(parts, url.QueryEscape(param.Key)+"="+url.QueryEscape(param.Value))
	}
	return strings.Join(parts, "&")
}
