// Package registry 参考登记库（学校与教职工目录）客户端
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dkmverify/internal/model"
)

// StatusError 登记库返回非成功状态或 {error} 响应
type StatusError struct {
	Key     string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("registry %s: status %d: %s", e.Key, e.Status, e.Message)
	}
	return fmt.Sprintf("registry %s: status %d", e.Key, e.Status)
}

// staffJSON 登记库 ptk 字段
type staffJSON struct {
	Name     textValue  `json:"nama"`
	Position textValue  `json:"jabatan_ptk"`
	Kind     textValue  `json:"jenis_ptk"`
	NIK      flexString `json:"nik"`
	NIP      flexString `json:"nip"`
	NUPTK    flexString `json:"nuptk"`
}

// recordJSON 登记库响应体
type recordJSON struct {
	ID        flexString  `json:"id"`
	Name      textValue   `json:"name"`
	Address   textValue   `json:"address"`
	Kecamatan textValue   `json:"kecamatan"`
	Kabupaten textValue   `json:"kabupaten"`
	Provinsi  textValue   `json:"provinsi"`
	Principal textValue   `json:"kepalaSekolah"`
	Staff     []staffJSON `json:"ptk"`
	Error     textValue   `json:"error"`
}

// flexString 兼容数字或字符串形式的编号；null、对象与数组视为空
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case raw == "null", strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["):
		*f = ""
	default:
		*f = flexString(raw)
	}
	return nil
}

// textValue 文本字段，非字符串值一律视为缺失
type textValue string

func (v *textValue) UnmarshalJSON(data []byte) error {
	*v = ""
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = textValue(s)
	return nil
}

// Client 登记库 HTTP 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建登记库客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup 按 NPSN 查询学校记录
func (c *Client) Lookup(ctx context.Context, key string) (*model.RegistryRecord, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("registry base url not configured")
	}
	endpoint := c.baseURL + "/?q=" + url.QueryEscape(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read registry response: %w", err)
	}

	var body recordJSON
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &StatusError{Key: key, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", decodeErr)
	}
	if body.Error != "" {
		return nil, &StatusError{Key: key, Status: resp.StatusCode, Message: string(body.Error)}
	}
	return toRecord(body), nil
}

func toRecord(body recordJSON) *model.RegistryRecord {
	rec := &model.RegistryRecord{
		ID:            string(body.ID),
		Name:          string(body.Name),
		Address:       string(body.Address),
		Subdistrict:   string(body.Kecamatan),
		District:      string(body.Kabupaten),
		Province:      string(body.Provinsi),
		PrincipalName: string(body.Principal),
		Staff:         make([]model.StaffMember, 0, len(body.Staff)),
	}
	principal := strings.ToLower(strings.TrimSpace(rec.PrincipalName))
	for _, s := range body.Staff {
		role := string(s.Position)
		if role == "" {
			role = string(s.Kind)
		}
		number := string(s.NIP)
		if number == "" {
			number = string(s.NUPTK)
		}
		name := string(s.Name)
		isPrincipal := strings.Contains(strings.ToLower(role), "kepala sekolah") ||
			(principal != "" && strings.ToLower(strings.TrimSpace(name)) == principal)
		rec.Staff = append(rec.Staff, model.StaffMember{
			Name:           name,
			Role:           role,
			NationalID:     string(s.NIK),
			EmployeeNumber: number,
			IsPrincipal:    isPrincipal,
		})
	}
	return rec
}
