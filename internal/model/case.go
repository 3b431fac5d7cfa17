package model

import (
	"strings"
	"time"
)

// StaffMember 学校教职工（来自参考登记库，只读）
type StaffMember struct {
	Name           string `json:"name"`
	Role           string `json:"role"`
	NationalID     string `json:"nationalId"`
	EmployeeNumber string `json:"employeeNumber"`
	IsPrincipal    bool   `json:"isPrincipal"`
}

// RegistryRecord 参考登记库中的学校记录
type RegistryRecord struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	Subdistrict   string        `json:"subdistrict"`   // kecamatan
	District      string        `json:"district"`      // kabupaten
	Province      string        `json:"province"`      // provinsi
	PrincipalName string        `json:"principalName"` // kepalaSekolah
	Staff         []StaffMember `json:"staff"`
}

// SearchStaff 按姓名 / 身份证号 / 工号模糊查找教职工（不区分大小写）
func (r *RegistryRecord) SearchStaff(query string) []StaffMember {
	if r == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]StaffMember, len(r.Staff))
		copy(out, r.Staff)
		return out
	}

	out := make([]StaffMember, 0)
	for _, s := range r.Staff {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(s.NationalID, q) ||
			strings.Contains(strings.ToLower(s.EmployeeNumber), q) {
			out = append(out, s)
		}
	}
	return out
}

// Image 安装文档图片
type Image struct {
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// HistoryEntry 门户流程历史记录（保持页面显示顺序）
type HistoryEntry struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// PortalRecord 旧门户中的案件详情
type PortalRecord struct {
	Ready        bool              `json:"ready"`
	SchoolFields map[string]string `json:"schoolFields"`
	Images       []Image           `json:"images"`
	History      []HistoryEntry    `json:"history"`
	DetailPath   string            `json:"detailPath"`
	Routing      RoutingParams     `json:"routing"`
}

// ImageMap 以 label → URI 形式返回图片
func (p PortalRecord) ImageMap() map[string]string {
	m := make(map[string]string, len(p.Images))
	for _, img := range p.Images {
		m[img.Label] = img.URI
	}
	return m
}

// ReviewCase 单个待审核案件（每个队首新建，决定或跳过后丢弃）
type ReviewCase struct {
	ID        string          `json:"id"`
	Key       string          `json:"key"` // NPSN
	Row       SheetRow        `json:"row"`
	Registry  *RegistryRecord `json:"registry"`
	Portal    PortalRecord    `json:"portal"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
