package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

type tokenIssuer interface {
	GenerateToken(staffID int64, role, terminalID string) (string, error)
}

type Service struct {
	repo Repository
	jwt  tokenIssuer
	now  func() time.Time
}

func NewService(repo Repository, jwt tokenIssuer) *Service {
	return &Service{repo: repo, jwt: jwt, now: time.Now}
}

type LoginResult struct {
	Staff       *Staff
	AccessToken string
}

// Login checks the PIN and issues a token bound to the terminal.
// Five consecutive failures lock the account for fifteen minutes.
func (s *Service) Login(ctx context.Context, code, pin, terminalID string) (*LoginResult, error) {
	st, err := s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !st.Active {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if st.LockedUntil != nil && st.LockedUntil.After(now) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(st.PinHash), []byte(pin)); err != nil {
		failed := st.FailedLoginAttempts + 1
		var until *time.Time
		if failed >= maxFailedLoginAttempts {
			t := now.Add(lockoutDuration)
			until = &t
		}
		if err := s.repo.RecordFailure(ctx, st.ID, failed, until); err != nil {
			return nil, err
		}
		if until != nil {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.RecordSuccess(ctx, st.ID, now); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(st.ID, st.Role, terminalID)
	if err != nil {
		return nil, err
	}
	st.PinHash = ""
	return &LoginResult{Staff: st, AccessToken: token}, nil
}

// HashPin is used by the seed command and admin tooling.
func HashPin(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(b), err
}
