package services

import (
	"database/sql"
	"errors"

	"github.com/MALKOO0044/shopixo-sub004/internal/domain"
	"github.com/MALKOO0044/shopixo-sub004/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	Audit *repos.AuditRepo
}

func NewAuthService(users *repos.UserRepo, audit *repos.AuditRepo) *AuthService {
	return &AuthService{Users: users, Audit: audit}
}

// Login verifies the password and binds the user to the session. The same
// error covers both a missing user and a wrong password.
func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	_ = s.Audit.Record(u.Email, "auth.login", map[string]any{"sid": sid})
	return u, nil
}

// ChangePassword verifies the current password before storing a new hash.
// Strength rules are the caller's concern; this only guards identity.
func (s *AuthService) ChangePassword(u *domain.User, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(current)) != nil {
		return ErrBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), 12)
	if err != nil {
		return err
	}
	if err := s.Users.SetPasswordHash(u.ID, string(hash)); err != nil {
		return err
	}
	_ = s.Audit.Record(u.Email, "auth.password.change", map[string]any{"user_id": u.ID})
	return nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

// Current returns nil without error when the session is anonymous.
func (s *AuthService) Current(sid string) (*domain.User, error) {
	u, err := s.Users.SessionUser(sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}
