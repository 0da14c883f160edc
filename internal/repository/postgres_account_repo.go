package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ignitecall/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用した連携アカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, user_id, type, provider, provider_account_id,
	COALESCE(access_token, ''), COALESCE(refresh_token, ''), COALESCE(id_token, ''),
	COALESCE(token_type, ''), COALESCE(scope, ''), COALESCE(session_state, ''),
	expires_at, created_at`

// scanAccount は1行分のアカウントをスキャンする。
func scanAccount(row *sql.Row) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(
		&account.ID, &account.UserID, &account.Type, &account.Provider, &account.ProviderAccountID,
		&account.AccessToken, &account.RefreshToken, &account.IDToken,
		&account.TokenType, &account.Scope, &account.SessionState,
		&account.ExpiresAt, &account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindByProviderAccountID は(provider, provider_account_id)でアカウントを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find account by provider account ID: %w", err)
	}
	return account, nil
}

// FindByUserAndProvider はユーザーIDとプロバイダー名でアカウントを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find account by user and provider: %w", err)
	}
	return account, nil
}

// Link は連携アカウントを作成する。
// (provider, provider_account_id)の一意制約違反はそのまま呼び出し元へ返す。
func (r *PostgresAccountRepo) Link(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, user_id, type, provider, provider_account_id,
			access_token, refresh_token, id_token, token_type, scope, session_state,
			expires_at, created_at
		 ) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13)`,
		account.ID, account.UserID, account.Type, account.Provider, account.ProviderAccountID,
		account.AccessToken, account.RefreshToken, account.IDToken,
		account.TokenType, account.Scope, account.SessionState,
		account.ExpiresAt, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

// UpdateCredentials はトークンリフレッシュ後の資格情報一式を永続化する。
// 対象IDの行が存在しない場合はエラーを返す。
func (r *PostgresAccountRepo) UpdateCredentials(ctx context.Context, id string, creds model.AccountCredentials) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET access_token = NULLIF($2, ''), refresh_token = NULLIF($3, ''),
			id_token = NULLIF($4, ''), token_type = NULLIF($5, ''),
			scope = NULLIF($6, ''), expires_at = $7
		 WHERE id = $1`,
		id, creds.AccessToken, creds.RefreshToken, creds.IDToken,
		creds.TokenType, creds.Scope, creds.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account credentials: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
