package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/domain/entity"
	repo "github.com/oksasatya/feedstream/internal/domain/repository"
	"github.com/oksasatya/feedstream/pkg/helpers"
	"github.com/oksasatya/feedstream/pkg/mailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
)

// EmailEnqueuer publishes email jobs for background delivery.
type EmailEnqueuer interface {
	Enqueue(ctx context.Context, job mailer.EmailJob) error
}

// AuthService handles signup, login and the caller-scoped status text.
type AuthService struct {
	Users  repo.UserRepository
	Tokens *helpers.TokenManager
	Mail   EmailEnqueuer
	Logger *logrus.Logger
}

func NewAuthService(users repo.UserRepository, tokens *helpers.TokenManager, mail EmailEnqueuer, logger *logrus.Logger) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Mail: mail, Logger: logger}
}

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// Signup creates a user with a bcrypt password hash. The welcome email
// is enqueued fire-and-forget; a broker failure never fails the signup.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	if existing, err := s.Users.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: hash,
		Status:   "I am new!",
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}

	if s.Mail != nil {
		dctx := context.WithoutCancel(ctx)
		go func() {
			c, cancel := context.WithTimeout(dctx, 10*time.Second)
			defer cancel()
			if err := s.Mail.Enqueue(c, mailer.WelcomeEmail(u.Email, u.Name)); err != nil && s.Logger != nil {
				s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to enqueue welcome email")
			}
		}()
	}
	return u, nil
}

type LoginResult struct {
	UserID  string    `json:"user_id"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires_at"`
}

// Login verifies the credentials and issues a signed token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.Tokens.Generate(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{UserID: u.ID, Token: token, Expires: exp}, nil
}

// GetStatus returns the caller's own status text.
func (s *AuthService) GetStatus(ctx context.Context, userID string) (string, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return u.Status, nil
}

// UpdateStatus sets the caller's own status text. Only the owner of a
// status can change it; the identity comes from the verified token.
func (s *AuthService) UpdateStatus(ctx context.Context, userID, status string) (string, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	u.Status = status
	if err := s.Users.Update(ctx, u); err != nil {
		return "", err
	}
	return u.Status, nil
}
