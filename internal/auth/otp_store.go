package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
)

type SQLOTPStore struct{ db *sql.DB }

func NewSQLOTPStore(db *sql.DB) *SQLOTPStore { return &SQLOTPStore{db: db} }

func (s *SQLOTPStore) SaveOTP(ctx context.Context, phone, hash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO otp_codes (phone,code_hash,expires_at,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (phone) DO UPDATE SET code_hash=EXCLUDED.code_hash, expires_at=EXCLUDED.expires_at, created_at=EXCLUDED.created_at`,
		phone, hash, expiresAt.Unix(), time.Now().Unix())
	return err
}

func (s *SQLOTPStore) TakeOTP(ctx context.Context, phone string) (string, time.Time, error) {
	var hash string
	var exp int64
	err := s.db.QueryRowContext(ctx, `DELETE FROM otp_codes WHERE phone=$1 RETURNING code_hash, expires_at`, phone).
		Scan(&hash, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, errNoOTP
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return hash, time.Unix(exp, 0), nil
}

func (s *SQLOTPStore) UpsertUser(ctx context.Context, phone, role string) (string, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `INSERT INTO users (phone,role,created_at) VALUES ($1,$2,$3)
		ON CONFLICT (phone) DO UPDATE SET role=CASE WHEN EXCLUDED.role='admin' THEN 'admin' ELSE users.role END
		RETURNING role`, phone, role, time.Now().Unix()).Scan(&stored)
	return stored, err
}

type pendingOTP struct {
	hash string
	exp  time.Time
}

// MemoryOTPStore backs OTP login when the service runs without a database.
type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]pendingOTP
	users map[string]string
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{codes: map[string]pendingOTP{}, users: map[string]string{}}
}

func (m *MemoryOTPStore) SaveOTP(_ context.Context, phone, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[phone] = pendingOTP{hash: hash, exp: expiresAt}
	return nil
}

func (m *MemoryOTPStore) TakeOTP(_ context.Context, phone string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.codes[phone]
	if !ok {
		return "", time.Time{}, errNoOTP
	}
	delete(m.codes, phone)
	return p.hash, p.exp, nil
}

func (m *MemoryOTPStore) UpsertUser(_ context.Context, phone, role string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.users[phone]; ok && role != rbac.RoleAdmin {
		return cur, nil
	}
	m.users[phone] = role
	return role, nil
}
