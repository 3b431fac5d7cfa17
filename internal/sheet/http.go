package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dkmverify/internal/model"
)

// HTTPStore 通过表格服务 JSON 接口访问共享表格
//
//	GET  {base}/rows          → {"values":[{"rowIndex":1,"rowData":[...]}]}
//	POST {base}/batch-update  ← {"action":"update"|"formatSkip", "sheetName", "rowIndex", "updates", "note", "mark"}
type HTTPStore struct {
	baseURL    string
	sheetName  string
	httpClient *http.Client
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore 创建 HTTP 表格存储
func NewHTTPStore(baseURL, sheetName string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sheetName:  sheetName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rowsResponse struct {
	Values []model.SheetRow `json:"values"`
	Error  string           `json:"error"`
}

type batchUpdateBody struct {
	Action    string         `json:"action"`
	SheetName string         `json:"sheetName,omitempty"`
	RowIndex  int            `json:"rowIndex"`
	Updates   map[string]any `json:"updates,omitempty"`
	Note      *string        `json:"note,omitempty"`
	Mark      Mark           `json:"mark,omitempty"`
}

// Rows 读取全部行
func (s *HTTPStore) Rows(ctx context.Context) ([]model.SheetRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rows", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	data, err := s.do(req, "rows")
	if err != nil {
		return nil, err
	}

	var resp rowsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	if resp.Values == nil {
		return []model.SheetRow{}, nil
	}
	return resp.Values, nil
}

// Update 写回一行
func (s *HTTPStore) Update(ctx context.Context, req UpdateRequest) error {
	if req.RowIndex < 1 {
		return fmt.Errorf("invalid row index %d", req.RowIndex)
	}
	return s.post(ctx, batchUpdateBody{
		Action:    "update",
		SheetName: s.sheetName,
		RowIndex:  req.RowIndex,
		Updates:   req.Values,
		Note:      req.Note,
	})
}

// MarkSkip 设置跳过标记
func (s *HTTPStore) MarkSkip(ctx context.Context, rowIndex int, mark Mark) error {
	if !mark.Valid() {
		return fmt.Errorf("unknown skip mark %q", mark)
	}
	return s.post(ctx, batchUpdateBody{
		Action:    "formatSkip",
		SheetName: s.sheetName,
		RowIndex:  rowIndex,
		Mark:      mark,
	})
}

func (s *HTTPStore) post(ctx context.Context, body batchUpdateBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/batch-update", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = s.do(req, body.Action)
	return err
}

func (s *HTTPStore) do(req *http.Request, op string) ([]byte, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("sheet endpoint not configured")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
