package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
)

var (
	ErrOTPInvalid = errors.New("otp invalid or expired")
	errNoOTP      = errors.New("no otp issued")
)

// OTPStore persists hashed one-time codes and registered users.
type OTPStore interface {
	SaveOTP(ctx context.Context, phone, hash string, expiresAt time.Time) error
	// TakeOTP returns and deletes the pending code for phone.
	TakeOTP(ctx context.Context, phone string) (hash string, expiresAt time.Time, err error)
	// UpsertUser registers phone and returns its stored role. An admin role
	// always wins over an existing student row.
	UpsertUser(ctx context.Context, phone, role string) (string, error)
}

// OTPService issues and checks login codes. Delivery is mocked: Issue
// returns the code to the caller.
type OTPService struct {
	store  OTPStore
	ttl    time.Duration
	cost   int
	admins map[string]bool
	now    func() time.Time
}

func NewOTPService(store OTPStore, ttl time.Duration, adminPhones []string) *OTPService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	admins := map[string]bool{}
	for _, p := range adminPhones {
		if n, err := NormalizePhone(p); err == nil {
			admins[n] = true
		}
	}
	return &OTPService{store: store, ttl: ttl, cost: bcrypt.DefaultCost, admins: admins, now: time.Now}
}

// WithBcryptCost lowers hashing cost; tests use bcrypt.MinCost.
func (s *OTPService) WithBcryptCost(cost int) *OTPService {
	s.cost = cost
	return s
}

var validate = validator.New()

// NormalizePhone strips separators and a leading '+' and requires 10-15 digits.
func NormalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")
	if err := validate.Var(p, "required,number,min=10,max=15"); err != nil {
		return "", fmt.Errorf("%w: phone %q", exam.ErrInvalidInput, phone)
	}
	return p, nil
}

// Issue creates a fresh code for phone, replacing any pending one.
func (s *OTPService) Issue(ctx context.Context, phone string) (normalized, code string, err error) {
	normalized, err = NormalizePhone(phone)
	if err != nil {
		return "", "", err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%06d", n.Int64())
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", "", err
	}
	if err := s.store.SaveOTP(ctx, normalized, string(hash), s.now().Add(s.ttl)); err != nil {
		return "", "", err
	}
	return normalized, code, nil
}

// Verify consumes the pending code for phone and registers the user on
// success. Any attempt, right or wrong, invalidates the pending code.
func (s *OTPService) Verify(ctx context.Context, phone, code string) (normalized, role string, err error) {
	normalized, err = NormalizePhone(phone)
	if err != nil {
		return "", "", err
	}
	hash, exp, err := s.store.TakeOTP(ctx, normalized)
	if errors.Is(err, errNoOTP) {
		return "", "", ErrOTPInvalid
	}
	if err != nil {
		return "", "", err
	}
	if s.now().After(exp) || bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) != nil {
		return "", "", ErrOTPInvalid
	}
	role = rbac.RoleStudent
	if s.admins[normalized] {
		role = rbac.RoleAdmin
	}
	role, err = s.store.UpsertUser(ctx, normalized, role)
	if err != nil {
		return "", "", err
	}
	return normalized, role, nil
}
