package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/infra/cache"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrTokenMissing = errors.New("token is missing")
	ErrTokenRevoked = errors.New("token has been revoked")
)

const revokedPrefix = "auth:revoked:"

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	// Authenticate resolves a bearer token to its active user.
	Authenticate(ctx context.Context, token string) (*model.User, *jwtutil.UserClaims, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	Logout(ctx context.Context, claims *jwtutil.UserClaims) error
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type UpdateProfileInput struct {
	Username *string
	Email    *string
}

type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type authService struct {
	users   repo.UserRepo
	tokens  *jwtutil.Manager
	revoked cache.Store
	log     *zap.Logger
	now     func() time.Time
}

func NewAuthService(users repo.UserRepo, tokens *jwtutil.Manager, revoked cache.Store, log *zap.Logger) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
		log:     log,
		now:     time.Now,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, invalid("username, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, invalid("email is invalid")
	}

	taken, err := s.users.Taken(ctx, in.Username, in.Email, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if taken {
		return nil, conflict("username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	tenant := &model.Tenant{Name: fmt.Sprintf("%s's Organization", in.Username)}
	if err := s.users.Register(ctx, tenant, u); err != nil {
		if isDuplicate(err) {
			return nil, conflict("username or email already exists")
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("tenant_id", tenant.ID.String()))
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, invalid("username/email and password are required")
	}

	u, err := s.users.GetByIdentifier(ctx, identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, unauthorized("invalid credentials")
	}
	if !u.IsActive {
		return nil, unauthorized("account disabled")
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("update last login", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	u.LastLogin = &now

	return s.issue(u)
}

func (s *authService) issue(u *model.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(u.ID, u.TenantID, u.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, *jwtutil.UserClaims, error) {
	if token == "" {
		return nil, nil, ErrTokenMissing
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, err
	}

	if s.revoked != nil && claims.ID != "" {
		_, hit, err := s.revoked.Get(ctx, revokedPrefix+claims.ID)
		if err != nil {
			s.log.Warn("revocation lookup failed", zap.Error(err))
		}
		if hit {
			return nil, nil, ErrTokenRevoked
		}
	}

	u, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, jwtutil.ErrTokenInvalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return nil, nil, unauthorized("account disabled")
	}
	return u, claims, nil
}

func (s *authService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "user not found")
	}
	return u, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*model.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "user not found")
	}

	var username, email string
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, invalid("username cannot be empty")
		}
	}
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, invalid("email is invalid")
		}
	}

	if username != "" && username != u.Username {
		taken, err := s.users.Taken(ctx, username, "", u.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict("username already exists")
		}
		u.Username = username
	}
	if email != "" && email != u.Email {
		taken, err := s.users.Taken(ctx, "", email, u.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict("email already exists")
		}
		u.Email = email
	}

	if err := s.users.Update(ctx, u); err != nil {
		if isDuplicate(err) {
			return nil, conflict("username or email already exists")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if current == "" || next == "" {
		return invalid("current and new password are required")
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return orNotFound(err, "user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return s.users.Update(ctx, u)
}

func (s *authService) Logout(ctx context.Context, claims *jwtutil.UserClaims) error {
	if s.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Set(ctx, revokedPrefix+claims.ID, []byte("1"), ttl)
}
