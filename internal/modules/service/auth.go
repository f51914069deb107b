package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/tokens"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginOutput, error)
	// Authenticate resolves a session token to the current user.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type LoginInput struct {
	Login     string
	Password  string
	IP        string
	UserAgent string
}

type LoginOutput struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type authService struct {
	users  repo.UserRepo
	logs   repo.LogRepo
	issuer *tokens.Issuer
	log    *zap.Logger
}

func NewAuthService(users repo.UserRepo, logs repo.LogRepo, issuer *tokens.Issuer, log *zap.Logger) AuthService {
	return &authService{users: users, logs: logs, issuer: issuer, log: log}
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	entry := &model.LoginLog{Username: login, IP: in.IP, UserAgent: in.UserAgent}

	u, err := s.users.GetByLogin(ctx, login)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u != nil {
		entry.UserID = &u.ID
	}
	if u == nil || u.CheckPassword(in.Password) != nil {
		s.record(ctx, entry)
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	entry.Success = true
	s.record(ctx, entry)

	return &LoginOutput{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *authService) record(ctx context.Context, entry *model.LoginLog) {
	if err := s.logs.CreateLogin(ctx, entry); err != nil {
		s.log.Warn("write login log", zap.String("username", entry.Username), zap.Error(err))
	}
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	id, _, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tokens.ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
