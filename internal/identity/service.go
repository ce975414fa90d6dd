package identity

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/mobilemoney"
)

const minPasswordLength = 8

// Service manages user onboarding.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Register validates the request, hashes the password and stores the user.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return User{}, domain.Fail(domain.ErrInvalidRequest, "name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(reg.Email))
	if err != nil {
		return User{}, domain.Fail(domain.ErrInvalidRequest, "invalid email %q", reg.Email)
	}
	phone, err := mobilemoney.NormalizePhone(reg.Phone)
	if err != nil {
		return User{}, err
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, domain.Fail(domain.ErrInvalidRequest, "password must be at least %d characters", minPasswordLength)
	}
	plan, err := ParsePlan(reg.Plan)
	if err != nil {
		return User{}, err
	}

	user := User{
		Name:      name,
		Email:     strings.ToLower(addr.Address),
		Phone:     phone,
		Plan:      plan,
		CreatedAt: s.now().UTC(),
	}
	if reg.MobileMoneyNumber != "" {
		number, err := mobilemoney.NormalizePhone(reg.MobileMoneyNumber)
		if err != nil {
			return User{}, err
		}
		op, err := mobilemoney.ParseOperator(reg.MobileMoneyProvider)
		if err != nil {
			return User{}, err
		}
		user.MobileMoneyNumber = number
		user.MobileMoneyProvider = string(op)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, &user); err != nil {
		return User{}, err
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("plan", string(user.Plan)))
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// CheckPassword verifies the password of the user registered under email.
func (s *Service) CheckPassword(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, domain.Fail(domain.ErrInvalidRequest, "invalid credentials")
	}
	return user, nil
}
