package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresTimeIntervalRepo はPostgreSQLを使用した予約受付時間帯リポジトリ。
type PostgresTimeIntervalRepo struct {
	db *sql.DB
}

// NewPostgresTimeIntervalRepo はPostgresTimeIntervalRepoを生成する。
func NewPostgresTimeIntervalRepo(db *sql.DB) *PostgresTimeIntervalRepo {
	return &PostgresTimeIntervalRepo{db: db}
}

// CreateMany は複数の時間帯を同一トランザクションで作成する。
// 1件でも失敗した場合は全件ロールバックする。
func (r *PostgresTimeIntervalRepo) CreateMany(ctx context.Context, intervals []*model.UserTimeInterval) error {
	if len(intervals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, interval := range intervals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_time_intervals (id, user_id, week_day, time_start_in_minutes, time_end_in_minutes, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			interval.ID, interval.UserID, interval.WeekDay,
			interval.TimeStartInMinutes, interval.TimeEndInMinutes, interval.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert time interval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByUserID はユーザーの時間帯一覧をweek_day昇順で返す。
func (r *PostgresTimeIntervalRepo) ListByUserID(ctx context.Context, userID string) ([]*model.UserTimeInterval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, week_day, time_start_in_minutes, time_end_in_minutes, created_at
		 FROM user_time_intervals
		 WHERE user_id = $1
		 ORDER BY week_day, time_start_in_minutes`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list time intervals: %w", err)
	}
	defer rows.Close()

	var intervals []*model.UserTimeInterval
	for rows.Next() {
		interval := &model.UserTimeInterval{}
		if err := rows.Scan(
			&interval.ID, &interval.UserID, &interval.WeekDay,
			&interval.TimeStartInMinutes, &interval.TimeEndInMinutes, &interval.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan time interval: %w", err)
		}
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time intervals: %w", err)
	}

	return intervals, nil
}

// compile-time interface check
var _ TimeIntervalRepository = (*PostgresTimeIntervalRepo)(nil)
