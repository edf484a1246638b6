package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/keyward/keyward/internal/core/domain"
)

// Postgres error codes and the constraint names from schema.sql. The partial
// unique index over (key_id) WHERE returned_at IS NULL is what makes two
// racing assigns resolve deterministically: the second insert violates it.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintOpenKey    = "assignments_open_key_idx"
	constraintKeyFK      = "assignments_key_id_fkey"
	constraintHolderFK   = "assignments_assigned_to_fkey"
	constraintActorFK    = "assignments_assigned_by_fkey"
	constraintKeyLabel   = "keys_label_key"
	constraintUserEmail  = "users_email_key"
	constraintTokenHash  = "api_tokens_token_hash_key"
	constraintTokenOwner = "api_tokens_user_id_fkey"
)

// PostgresRepository implements ports.Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapConstraintError translates constraint violations into domain errors so
// callers never branch on driver types.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintOpenKey:
			return domain.ErrKeyAlreadyAssigned
		case constraintKeyLabel:
			return domain.ErrDuplicateLabel
		case constraintUserEmail:
			return domain.ErrDuplicateEmail
		}
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintKeyFK:
			return domain.ErrKeyNotFound
		case constraintHolderFK:
			return domain.ErrInvalidHolder
		case constraintActorFK, constraintTokenOwner:
			return domain.ErrInvalidActor
		}
	}
	return err
}

func (r *PostgresRepository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	// The active-key check and the insert run as one statement, so a key
	// cannot be retired out from under an in-flight assign.
	query := `INSERT INTO assignments (key_id, assigned_to, assigned_by, assigned_at)
	          SELECT $1, $2, $3, $4 FROM keys WHERE id = $1 AND active
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query, a.KeyID, a.AssignedTo, a.AssignedBy, a.AssignedAt).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		key, errGet := r.GetKey(ctx, a.KeyID)
		if errGet != nil {
			return errGet
		}
		if key == nil {
			return domain.ErrKeyNotFound
		}
		return domain.ErrKeyRetired
	}
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (r *PostgresRepository) CloseOpenAssignment(ctx context.Context, keyID int64, returnedAt time.Time) error {
	query := `UPDATE assignments SET returned_at = $2 WHERE key_id = $1 AND returned_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, keyID, returnedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoOpenAssignment
	}
	return nil
}

func (r *PostgresRepository) ListAssignmentsForKey(ctx context.Context, keyID int64) ([]domain.Assignment, error) {
	query := `SELECT a.id, a.key_id, a.assigned_to, a.assigned_by, a.assigned_at, a.returned_at,
	                 hu.email, au.email
	          FROM assignments a
	          JOIN users hu ON hu.id = a.assigned_to
	          JOIN users au ON au.id = a.assigned_by
	          WHERE a.key_id = $1
	          ORDER BY a.assigned_at DESC, a.id DESC`
	rows, errQuery := r.db.QueryContext(ctx, query, keyID)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var assignments []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var returnedAt sql.NullTime
		if errScan := rows.Scan(&a.ID, &a.KeyID, &a.AssignedTo, &a.AssignedBy, &a.AssignedAt, &returnedAt, &a.AssignedToEmail, &a.AssignedByEmail); errScan != nil {
			return nil, errScan
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			a.ReturnedAt = &t
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *PostgresRepository) GetOpenAssignment(ctx context.Context, keyID int64) (*domain.Assignment, error) {
	query := `SELECT id, key_id, assigned_to, assigned_by, assigned_at
	          FROM assignments WHERE key_id = $1 AND returned_at IS NULL`
	var a domain.Assignment
	errRow := r.db.QueryRowContext(ctx, query, keyID).Scan(&a.ID, &a.KeyID, &a.AssignedTo, &a.AssignedBy, &a.AssignedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	return &a, nil
}

func (r *PostgresRepository) CreateKey(ctx context.Context, key *domain.Key) error {
	query := `INSERT INTO keys (label, active, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, key.Label, key.Active, key.CreatedAt).Scan(&key.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (r *PostgresRepository) GetKey(ctx context.Context, id int64) (*domain.Key, error) {
	query := `SELECT id, label, active, created_at FROM keys WHERE id = $1`
	var k domain.Key
	errRow := r.db.QueryRowContext(ctx, query, id).Scan(&k.ID, &k.Label, &k.Active, &k.CreatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	return &k, nil
}

func (r *PostgresRepository) ListKeys(ctx context.Context) ([]domain.Key, error) {
	query := `SELECT k.id, k.label, k.active, k.created_at, o.id IS NOT NULL AS assigned
	          FROM keys k
	          LEFT JOIN assignments o ON o.key_id = k.id AND o.returned_at IS NULL
	          WHERE k.active
	          ORDER BY k.id`
	rows, errQuery := r.db.QueryContext(ctx, query)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var keys []domain.Key
	for rows.Next() {
		var k domain.Key
		if errScan := rows.Scan(&k.ID, &k.Label, &k.Active, &k.CreatedAt, &k.Assigned); errScan != nil {
			return nil, errScan
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) RetireKey(ctx context.Context, id int64) error {
	// The NOT EXISTS guard and the update run as one statement, so a key
	// cannot be retired out from under an open assignment.
	query := `UPDATE keys SET active = FALSE
	          WHERE id = $1
	          AND NOT EXISTS (SELECT 1 FROM assignments WHERE key_id = $1 AND returned_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		key, errGet := r.GetKey(ctx, id)
		if errGet != nil {
			return errGet
		}
		if key == nil {
			return domain.ErrKeyNotFound
		}
		return domain.ErrKeyAssigned
	}
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (email, active, created_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Active, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT id, email, active, created_at FROM users WHERE id = $1`
	var u domain.User
	errRow := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Active, &u.CreatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	return &u, nil
}

func (r *PostgresRepository) CreateAPIToken(ctx context.Context, token *domain.APIToken) error {
	query := `INSERT INTO api_tokens (id, user_id, name, token_hash, token_prefix, role, active, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.Name, token.TokenHash, token.TokenPrefix, string(token.Role), token.Active, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (r *PostgresRepository) GetAPITokenByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	query := `SELECT id, user_id, name, token_hash, token_prefix, role, active, created_at, expires_at
	          FROM api_tokens WHERE token_hash = $1`
	var t domain.APIToken
	var expiresAt sql.NullTime
	errRow := r.db.QueryRowContext(ctx, query, hash).Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.Role, &t.Active, &t.CreatedAt, &expiresAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	if expiresAt.Valid {
		e := expiresAt.Time
		t.ExpiresAt = &e
	}
	return &t, nil
}

func (r *PostgresRepository) ListAPITokens(ctx context.Context, userID int64) ([]domain.APIToken, error) {
	query := `SELECT id, user_id, name, token_hash, token_prefix, role, active, created_at, expires_at FROM api_tokens`
	var rows *sql.Rows
	var errQuery error

	if userID != 0 {
		query += " WHERE user_id = $1"
		rows, errQuery = r.db.QueryContext(ctx, query, userID)
	} else {
		rows, errQuery = r.db.QueryContext(ctx, query)
	}

	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var tokens []domain.APIToken
	for rows.Next() {
		var t domain.APIToken
		var expiresAt sql.NullTime
		if errScan := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.Role, &t.Active, &t.CreatedAt, &expiresAt); errScan != nil {
			return nil, errScan
		}
		if expiresAt.Valid {
			e := expiresAt.Time
			t.ExpiresAt = &e
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *PostgresRepository) RevokeAPIToken(ctx context.Context, id string) error {
	query := `UPDATE api_tokens SET active = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
