package store

import (
	"context"
	"fmt"

	"dkmverify/internal/model"
)

// AppendDecision 追加决定审计记录
func (s *Store) AppendDecision(ctx context.Context, rec model.DecisionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, row_index, case_key, verifier, decision, rationale, edited, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RowIndex, rec.CaseKey, rec.Verifier, string(rec.Decision), rec.Rationale,
		rec.Edited, string(rec.Outcome), rec.Detail, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// ListDecisions 按时间倒序列出决定记录，limit <= 0 表示全部
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error) {
	query := `
		SELECT id, row_index, case_key, verifier, decision, rationale, edited, outcome, detail, created_at
		FROM decisions ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	result := make([]model.DecisionRecord, 0)
	for rows.Next() {
		var (
			rec      model.DecisionRecord
			decision string
			outcome  string
		)
		if err := rows.Scan(&rec.ID, &rec.RowIndex, &rec.CaseKey, &rec.Verifier, &decision,
			&rec.Rationale, &rec.Edited, &outcome, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		rec.Decision = model.Decision(decision)
		rec.Outcome = model.Outcome(outcome)
		result = append(result, rec)
	}
	return result, rows.Err()
}
