package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dkmverify/internal/model"
)

func TestDetectMismatches(t *testing.T) {
	got := DetectMismatches(sampleDetail().Fields, sampleRecord())

	assert.Equal(t, map[string]bool{
		"Nama":      false, // 大小写与首尾空白不计
		"Alamat":    false,
		"Kecamatan": false,
		"Kabupaten": false,
		"PIC":       true,
	}, got)
}

// TestDetectMismatchesMissingValues 测试缺值不标记
func TestDetectMismatchesMissingValues(t *testing.T) {
	got := DetectMismatches(map[string]string{"Nama": "X"}, nil)
	for _, label := range MismatchLabels() {
		assert.False(t, got[label], label)
	}

	got = DetectMismatches(map[string]string{"Nama": "SD LAIN"}, sampleRecord())
	assert.True(t, got["Nama"])
	assert.False(t, got["Alamat"])
	assert.Len(t, got, 5)
}

func TestAddressMatches(t *testing.T) {
	fields := sampleDetail().Fields
	assert.True(t, AddressMatches(fields, sampleRecord()))

	fields["Kabupaten"] = "Kota Bandung"
	assert.False(t, AddressMatches(fields, sampleRecord()))
	assert.False(t, AddressMatches(fields, nil))
}

// TestDetectMismatchesRegistryAbsent 测试登记库侧为空或 null 的字段视为未知
func TestDetectMismatchesRegistryAbsent(t *testing.T) {
	fields := map[string]string{"Nama": "SD 1", "Alamat": "Jl. X", "PIC": "Budi"}

	got := DetectMismatches(fields, &model.RegistryRecord{Name: "SD 1", PrincipalName: "  "})
	for _, label := range MismatchLabels() {
		assert.False(t, got[label], label)
	}

	got = DetectMismatches(fields, &model.RegistryRecord{Name: "SD 2"})
	assert.True(t, got["Nama"])
	assert.False(t, got["Alamat"])
	assert.False(t, got["PIC"])
}
