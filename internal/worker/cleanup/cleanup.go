// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 有効期限を過ぎたセッションと、保持期間（デフォルト7日）を超過しても
// 補完されなかったプレースホルダユーザーを日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// MetricsRecorder は削除件数のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSessionsCleaned(count int)
}

// CleanupJob は期限切れセッションと放置プレースホルダの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db                       Executor
	logger                   *slog.Logger
	metrics                  MetricsRecorder
	PlaceholderRetentionDays int // プレースホルダ行の保持日数（デフォルト: 7）
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
// デフォルトの保持日数は7日（ペンディングアイデンティティCookieの寿命と同じ）。
func NewCleanupJob(db Executor, logger *slog.Logger, metrics MetricsRecorder) *CleanupJob {
	return &CleanupJob{
		db:                       db,
		logger:                   logger,
		metrics:                  metrics,
		PlaceholderRetentionDays: 7,
	}
}

// Run は期限切れセッションと放置プレースホルダを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	// 1. 有効期限切れセッションの削除
	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}
	sessionsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	if j.metrics != nil {
		j.metrics.RecordSessionsCleaned(int(sessionsDeleted))
	}

	// 2. 補完されないまま保持期間を超過したプレースホルダユーザーの削除。
	// email IS NULLは初回の外部ログインが完了していないことを表す。
	// 連携アカウントを持つ行は補完済みのため対象外（念のため条件に含める）。
	interval := fmt.Sprintf("%d days", j.PlaceholderRetentionDays)
	result, err = j.db.ExecContext(ctx,
		`DELETE FROM users
		 WHERE email IS NULL
		   AND created_at < now() - $1::interval
		   AND NOT EXISTS (SELECT 1 FROM accounts WHERE accounts.user_id = users.id)`,
		interval,
	)
	if err != nil {
		j.logger.Error("プレースホルダユーザーの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.PlaceholderRetentionDays),
		)
		return fmt.Errorf("プレースホルダユーザーの削除に失敗: %w", err)
	}
	placeholdersDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("placeholders_deleted", placeholdersDeleted),
		slog.Int("retention_days", j.PlaceholderRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
