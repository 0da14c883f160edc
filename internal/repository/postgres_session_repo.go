package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
// session_tokenの一意制約違反はそのまま呼び出し元へ返す。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_token, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.SessionToken, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT session_token, user_id, expires_at, created_at
		 FROM sessions
		 WHERE session_token = $1`,
		token,
	).Scan(&session.SessionToken, &session.UserID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// FindByTokenWithUser はセッションと所有ユーザーを1回のJOINクエリで取得する。
// トークンが未知の場合は両方nilを返す。
func (r *PostgresSessionRepo) FindByTokenWithUser(ctx context.Context, token string) (*model.Session, *model.User, error) {
	session := &model.Session{}
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.session_token, s.user_id, s.expires_at, s.created_at,
			u.id, u.name, u.username, COALESCE(u.email, ''), u.avatar_url, u.created_at, u.updated_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.session_token = $1`,
		token,
	).Scan(
		&session.SessionToken, &session.UserID, &session.ExpiresAt, &session.CreatedAt,
		&user.ID, &user.Name, &user.Username, &user.Email, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session with user: %w", err)
	}

	return session, user, nil
}

// Update はセッションのuser_idとexpires_atを更新する。
// 対象トークンの行が存在しない場合はエラーを返す。
func (r *PostgresSessionRepo) Update(ctx context.Context, session *model.Session) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET user_id = $2, expires_at = $3 WHERE session_token = $1`,
		session.SessionToken, session.UserID, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found: %s", session.SessionToken)
	}
	return nil
}

// DeleteByToken は指定トークンのセッションを削除する。
// 対象行が存在しない場合はエラーを返す。
func (r *PostgresSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found: %s", token)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
