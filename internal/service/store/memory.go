package store

import (
	"context"
	"sort"
	"sync"

	"dkmverify/internal/model"
)

// MemoryStore 内存会话存储（凭证与决定日志），不落盘
type MemoryStore struct {
	credential model.Credential
	decisions  []model.DecisionRecord
	mu         sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make([]model.DecisionRecord, 0),
	}
}

// NewMemoryStoreWith 以初始凭证创建内存存储
func NewMemoryStoreWith(cred model.Credential) *MemoryStore {
	s := NewMemoryStore()
	s.credential = cred
	return s
}

// Load 读取凭证
func (s *MemoryStore) Load(ctx context.Context) (model.Credential, error) {
	if err := ctx.Err(); err != nil {
		return model.Credential{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

// Save 保存凭证
func (s *MemoryStore) Save(ctx context.Context, cred model.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = cred
	return nil
}

// AppendDecision 追加决定日志
func (s *MemoryStore) AppendDecision(ctx context.Context, rec model.DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, rec)
	return nil
}

// ListDecisions 按时间倒序返回决定日志，limit <= 0 表示全部
func (s *MemoryStore) ListDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.DecisionRecord, len(s.decisions))
	copy(result, s.decisions)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count 决定日志条数
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decisions)
}

// Clear 清空凭证与日志
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = model.Credential{}
	s.decisions = make([]model.DecisionRecord, 0)
}
