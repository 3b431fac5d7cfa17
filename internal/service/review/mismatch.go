package review

import (
	"strings"

	"dkmverify/internal/model"
)

// 门户字段与登记库字段的对照（仅这五项参与比对，各自独立）
var mismatchPairs = []struct {
	Label    string
	Registry func(*model.RegistryRecord) string
}{
	{"Nama", func(r *model.RegistryRecord) string { return r.Name }},
	{"Alamat", func(r *model.RegistryRecord) string { return r.Address }},
	{"Kecamatan", func(r *model.RegistryRecord) string { return r.Subdistrict }},
	{"Kabupaten", func(r *model.RegistryRecord) string { return r.District }},
	{"PIC", func(r *model.RegistryRecord) string { return r.PrincipalName }},
}

// MismatchLabels 参与比对的门户字段标签
func MismatchLabels() []string {
	out := make([]string, len(mismatchPairs))
	for i, p := range mismatchPairs {
		out[i] = p.Label
	}
	return out
}

// DetectMismatches 比对门户字段与登记库记录，true 表示不一致。
// 任一侧缺值（门户无该标签，或登记库值为空 / null）时不标记。
func DetectMismatches(fields map[string]string, reg *model.RegistryRecord) map[string]bool {
	out := make(map[string]bool, len(mismatchPairs))
	for _, p := range mismatchPairs {
		out[p.Label] = false
		if reg == nil {
			continue
		}
		portalValue, ok := fields[p.Label]
		if !ok {
			continue
		}
		registryValue := p.Registry(reg)
		if strings.TrimSpace(registryValue) == "" {
			continue
		}
		out[p.Label] = !sameText(portalValue, registryValue)
	}
	return out
}

// AddressMatches 地址、乡镇、县区三项是否全部一致
func AddressMatches(fields map[string]string, reg *model.RegistryRecord) bool {
	if reg == nil {
		return false
	}
	for _, pair := range [][2]string{
		{fields["Alamat"], reg.Address},
		{fields["Kecamatan"], reg.Subdistrict},
		{fields["Kabupaten"], reg.District},
	} {
		if !sameText(pair[0], pair[1]) {
			return false
		}
	}
	return true
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
