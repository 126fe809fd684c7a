package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// JWTConfig holds configuration for JWT token generation
type JWTConfig struct {
	Secret    string
	ExpiresIn int // hours
}

// AuthService handles accounts, tokens and role administration
type AuthService struct {
	users     UserStore
	jwtConfig JWTConfig
	log       zerolog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users UserStore, jwtConfig JWTConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtConfig: jwtConfig,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// Claims represents JWT claims
type Claims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Signup creates an account. Every account holds customer; a chef or driver
// signup adds that role too.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (string, *models.User, error) {
	roles := []models.UserRole{models.RoleCustomer}
	switch req.Role {
	case "", models.RoleCustomer:
	case models.RoleChef, models.RoleDriver:
		roles = append(roles, req.Role)
	default:
		return "", nil, fmt.Errorf("%w: role %q cannot be requested at signup", ErrInvalidInput, req.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Address:      req.Address,
		PhoneNumber:  req.Phone,
		AvatarURL:    req.AvatarURL,
		Roles:        roles,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.generateToken(created.ID, created.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info().Str("user_id", created.ID.String()).Interface("roles", created.Roles).Msg("account created")
	return token, created, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if user.IsBanned {
		return "", nil, ErrBanned
	}

	token, err := s.generateToken(user.ID, user.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, user, nil
}

// generateToken generates a JWT token for a user
func (s *AuthService) generateToken(userID uuid.UUID, roles []models.UserRole) (string, error) {
	now := time.Now()
	expirationTime := now.Add(time.Duration(s.jwtConfig.ExpiresIn) * time.Hour)

	tags := make([]string, len(roles))
	for i, r := range roles {
		tags[i] = string(r)
	}

	claims := &Claims{
		UserID: userID.String(),
		Roles:  tags,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtConfig.Secret))
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ActorFromClaims resolves the caller named by a validated token. The token
// is identity only: roles and ban state are read from the store so grants,
// revocations and bans apply to live tokens. Unknown stored role tags are
// kept with no permissions and reported.
func (s *AuthService) ActorFromClaims(ctx context.Context, claims *Claims) (Actor, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid user ID in token: %w", err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Actor{}, ErrInvalidCredentials
		}
		return Actor{}, fmt.Errorf("failed to load caller: %w", err)
	}
	if user.IsBanned {
		return Actor{}, ErrBanned
	}

	tags := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		tags = append(tags, string(r))
	}
	roles, unknown := permissions.ParseRoles(tags)
	if len(unknown) > 0 {
		s.log.Warn().Str("user_id", claims.UserID).Strs("roles", unknown).Msg("account carries unknown roles")
	}
	if len(roles) == 0 {
		roles = permissions.NewRoleSet(models.RoleCustomer)
	}

	return Actor{ID: id, Roles: roles}, nil
}

// Profile returns the caller's own account
func (s *AuthService) Profile(ctx context.Context, actor Actor) (*models.User, error) {
	return s.users.GetByID(ctx, actor.ID)
}

// UpdateProfile edits the caller's own profile
func (s *AuthService) UpdateProfile(ctx context.Context, actor Actor, req models.ProfileUpdateRequest) (*models.User, error) {
	if err := actor.require(permissions.CanEditOwnProfile); err != nil {
		return nil, err
	}

	return s.users.UpdateProfile(ctx, models.User{
		ID:          actor.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Address:     req.Address,
		PhoneNumber: req.Phone,
		AvatarURL:   req.AvatarURL,
	})
}

// DeleteAccount removes the caller's own account
func (s *AuthService) DeleteAccount(ctx context.Context, actor Actor) error {
	if err := actor.require(permissions.CanDeleteOwnAccount); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, actor.ID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", actor.ID.String()).Msg("account deleted")
	return nil
}

// ListUsers returns every account
func (s *AuthService) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if err := actor.require(permissions.CanViewAllUsers); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// SetBanned bans or unbans another account
func (s *AuthService) SetBanned(ctx context.Context, actor Actor, userID uuid.UUID, banned bool) error {
	if err := actor.require(permissions.CanBanUsers); err != nil {
		return err
	}
	if userID == actor.ID {
		return fmt.Errorf("%w: cannot ban yourself", ErrInvalidInput)
	}

	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return err
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", userID.String()).
		Bool("banned", banned).
		Msg("ban flag changed")
	return nil
}

// GrantRole adds a role to another account
func (s *AuthService) GrantRole(ctx context.Context, actor Actor, userID uuid.UUID, role models.UserRole) error {
	if err := canManageRole(actor, role); err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.AddRole(ctx, userID, role); err != nil {
		return err
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", userID.String()).
		Str("role", string(role)).
		Msg("role granted")
	return nil
}

// RevokeRole removes a role from another account
func (s *AuthService) RevokeRole(ctx context.Context, actor Actor, userID uuid.UUID, role models.UserRole) error {
	if err := canManageRole(actor, role); err != nil {
		return err
	}

	if err := s.users.RemoveRole(ctx, userID, role); err != nil {
		return err
	}

	s.log.Info().
		Str("actor_id", actor.ID.String()).
		Str("user_id", userID.String()).
		Str("role", string(role)).
		Msg("role revoked")
	return nil
}

// canManageRole: chefs and drivers are managed by their dedicated
// permissions, every other role only by admins
func canManageRole(actor Actor, role models.UserRole) error {
	if !permissions.IsKnownRole(role) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, permissions.ErrUnknownRole)
	}

	switch role {
	case models.RoleChef:
		return actor.require(permissions.CanManageChefs)
	case models.RoleDriver:
		return actor.require(permissions.CanManageDrivers)
	default:
		if !actor.Roles.Has(models.RoleAdmin) {
			return ErrForbidden
		}
		return nil
	}
}
