package postgres

import (
	"context"
	"fmt"

	"github.com/Achrafcosmo/arena-ai/internal/model"
	"github.com/Achrafcosmo/arena-ai/internal/storage"
)

// LogStore implements storage.LogStore using PostgreSQL.
type LogStore struct {
	pool *Pool
}

func NewLogStore(pool *Pool) *LogStore {
	return &LogStore{pool: pool}
}

var _ storage.LogStore = (*LogStore)(nil)

func (s *LogStore) AppendLog(ctx context.Context, log *model.RunLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arena_logs (run_id, model_id, level, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		log.RunID, log.ModelID, log.Level, log.Message, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (s *LogStore) RecentLogs(ctx context.Context, runID string, limit int) ([]*model.RunLog, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, model_id, level, message, created_at
		FROM arena_logs WHERE run_id = $1
		ORDER BY created_at DESC LIMIT $2`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("select logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.RunLog
	for rows.Next() {
		var l model.RunLog
		if err := rows.Scan(&l.RunID, &l.ModelID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
