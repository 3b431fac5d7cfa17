package portal

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"dkmverify/internal/model"
)

// 提取契约（门户 v1 页面结构）：
//
//   监控列表：#main-content 下 .table-container 中表格 tbody 的第一行；
//     首个 td 的 style 含 color:green 表示可审核；
//     行的 onclick="window.open('<详情链接>')" 给出详情链接。
//   详情页：.filter-section 内 type=text 的 input，标签为紧邻的前一个 <label>；
//     #flush-collapseTwo 内的 img，标签为所在 .card 中 label > b 的文本；
//     #flush-collapseOne 内 tbody 的每一行依次为 日期 / 状态 / 备注。
//   首页：button.dropdown-toggle 的文本为当前登录名。

var windowOpenPattern = regexp.MustCompile(`window\.open\('([^']*)'`)

// ListingEntry 监控列表中最新一条记录
type ListingEntry struct {
	Found      bool   // 列表中是否有记录
	Ready      bool   // 是否为可审核状态（绿色）
	DetailLink string // 详情页 path?query
}

// DetailPage 详情页提取结果
type DetailPage struct {
	Fields  map[string]string
	Images  []model.Image
	History []model.HistoryEntry
}

// ParseListing 解析监控列表页
func ParseListing(body []byte) (ListingEntry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ListingEntry{}, fmt.Errorf("failed to parse listing: %w", err)
	}

	scope := findFirst(doc, byID("main-content"))
	if scope == nil {
		scope = doc
	}
	container := findFirst(scope, byClass("table-container"))
	if container == nil {
		return ListingEntry{}, nil
	}
	tbody := findFirst(container, byTag("tbody"))
	if tbody == nil {
		return ListingEntry{}, nil
	}
	rows := children(tbody, "tr")
	if len(rows) == 0 {
		return ListingEntry{}, nil
	}

	first := rows[0]
	entry := ListingEntry{Found: true}
	if cells := children(first, "td"); len(cells) > 0 {
		entry.Ready = isGreen(attr(cells[0], "style"))
	}
	if m := windowOpenPattern.FindStringSubmatch(attr(first, "onclick")); m != nil {
		entry.DetailLink = m[1]
	}
	return entry, nil
}

// isGreen style 中是否声明 color:green（忽略空白与大小写）
func isGreen(style string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(normalized, "color:green")
}

// ParseDetail 解析案件详情页
func ParseDetail(body []byte) (DetailPage, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return DetailPage{}, fmt.Errorf("failed to parse detail: %w", err)
	}

	page := DetailPage{
		Fields:  make(map[string]string),
		Images:  []model.Image{},
		History: []model.HistoryEntry{},
	}

	for _, section := range findAll(doc, byClass("filter-section")) {
		inputs := findAll(section, func(n *html.Node) bool {
			return n.Data == "input" && strings.EqualFold(attr(n, "type"), "text")
		})
		for _, input := range inputs {
			prev := prevElement(input)
			if !isElement(prev, "label") {
				continue
			}
			label := normalizeLabel(text(prev))
			if label == "" {
				continue
			}
			page.Fields[label] = attr(input, "value")
		}
	}

	if docs := findFirst(doc, byID("flush-collapseTwo")); docs != nil {
		for _, img := range findAll(docs, byTag("img")) {
			card := closest(img, byClass("card"))
			if card == nil {
				continue
			}
			bold := findFirst(card, func(n *html.Node) bool {
				return n.Data == "b" && isElement(n.Parent, "label")
			})
			label := text(bold)
			src := attr(img, "src")
			if label == "" || src == "" {
				continue
			}
			page.Images = upsertImage(page.Images, model.Image{Label: label, URI: src})
		}
	}

	if history := findFirst(doc, byID("flush-collapseOne")); history != nil {
		for _, tbody := range findAll(history, byTag("tbody")) {
			for _, tr := range children(tbody, "tr") {
				cols := children(tr, "td")
				page.History = append(page.History, model.HistoryEntry{
					Date:   cellText(cols, 0),
					Status: cellText(cols, 1),
					Note:   cellText(cols, 2),
				})
			}
		}
	}

	return page, nil
}

// ParseIdentity 从门户首页提取当前登录名，未登录返回空串
func ParseIdentity(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse index: %w", err)
	}
	button := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "button" && hasClass(n, "dropdown-toggle")
	})
	return text(button), nil
}

// normalizeLabel 标签 "Telp" 与其它电话字段区分，统一为 "Telp PIC"
func normalizeLabel(label string) string {
	if label == "Telp" {
		return "Telp PIC"
	}
	return label
}

// upsertImage 同名标签覆盖原值并保留原位置
func upsertImage(images []model.Image, img model.Image) []model.Image {
	for i := range images {
		if images[i].Label == img.Label {
			images[i] = img
			return images
		}
	}
	return append(images, img)
}

func cellText(cols []*html.Node, i int) string {
	if i >= len(cols) {
		return ""
	}
	return text(cols[i])
}
