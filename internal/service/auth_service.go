package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/validation"
)

// UserRepository описывает зависимости AuthService от слоя хранилища.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error
	GetContractorProfile(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
	UpsertContractorProfile(ctx context.Context, p *models.ContractorProfile) error
	SetContractorApproval(ctx context.Context, userID uuid.UUID, status string, probationary bool) error
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error)
	RotateSessionToken(ctx context.Context, sessionID uuid.UUID, refreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, refreshToken string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
}

// AuthService инкапсулирует регистрацию, аутентификацию и анкеты подрядчиков.
type AuthService struct {
	repo         UserRepository
	tokenManager *TokenManager
}

func NewAuthService(repo UserRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{repo: repo, tokenManager: tokenManager}
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Role     string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// SessionMeta содержит метаданные подключения для записи сессии.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// Register создаёт нового пользователя. Роль администратора через публичную
// регистрацию недоступна.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = deriveUsername(in.Email)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if role != models.RoleCustomer && role != models.RoleContractor {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимая роль")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	taken, err := s.repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("auth service: register %w", err)
	}
	if taken {
		return nil, apperror.New(apperror.ErrCodeConflict, "email или имя пользователя уже заняты")
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(passHash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth service: register %w", err)
	}

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
		}
		return nil, fmt.Errorf("auth service: login %w", err)
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный email или пароль")
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Log.WithField("user_id", user.ID).WithError(err).Warn("auth service: не удалось обновить last_login_at")
	}

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Refresh выпускает новую пару токенов, ротируя refresh токен в сессии.
// Токен, не подтверждённый живой сессией, не принимается.
func (s *AuthService) Refresh(ctx context.Context, oldToken string) (*TokenPair, error) {
	if _, err := s.tokenManager.ParseRefresh(oldToken); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	session, err := s.repo.GetSessionByToken(ctx, oldToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия не найдена или истекла")
		}
		return nil, fmt.Errorf("auth service: refresh %w", err)
	}

	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("auth service: refresh %w", err)
	}
	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	}

	tokenPair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: refresh %w", err)
	}
	if err := s.repo.RotateSessionToken(ctx, session.ID, tokenPair.RefreshToken, refreshExp); err != nil {
		return nil, fmt.Errorf("auth service: refresh %w", err)
	}
	return tokenPair, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// GetUser возвращает пользователя по ID.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: get user %w", err)
	}
	return user, nil
}

// UpsertContractorProfile сохраняет анкету подрядчика. Новая или изменённая
// анкета ждёт одобрения администратора.
func (s *AuthService) UpsertContractorProfile(ctx context.Context, userID uuid.UUID, displayName, serviceArea string) (*models.ContractorProfile, error) {
	if err := validation.ValidateLength("отображаемое имя", displayName, validation.MinDisplayNameLength, validation.MaxDisplayNameLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("зона обслуживания", serviceArea); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("зона обслуживания", serviceArea, 1, validation.MaxServiceAreaLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth service: upsert profile %w", err)
	}
	if user.Role != models.RoleContractor {
		return nil, apperror.New(apperror.ErrCodeForbidden, "анкета доступна только подрядчикам")
	}

	p := &models.ContractorProfile{
		UserID:      userID,
		DisplayName: displayName,
		ServiceArea: serviceArea,
	}
	if err := s.repo.UpsertContractorProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("auth service: upsert profile %w", err)
	}
	return p, nil
}

// GetContractorProfile возвращает анкету подрядчика.
func (s *AuthService) GetContractorProfile(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	p, err := s.repo.GetContractorProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "анкета подрядчика не найдена")
		}
		return nil, fmt.Errorf("auth service: get profile %w", err)
	}
	return p, nil
}

// ApproveContractor выставляет допуск подрядчика администратором.
func (s *AuthService) ApproveContractor(ctx context.Context, userID uuid.UUID, status string, probationary bool) error {
	switch status {
	case models.ApprovalStatusApproved, models.ApprovalStatusRejected, models.ApprovalStatusPending:
	default:
		return apperror.New(apperror.ErrCodeValidation, "недопустимый статус допуска")
	}
	if err := s.repo.SetContractorApproval(ctx, userID, status, probationary); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "анкета подрядчика не найдена")
		}
		return fmt.Errorf("auth service: approve contractor %w", err)
	}
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User, meta SessionMeta) (*TokenPair, error) {
	tokenPair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: issue tokens %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		session.IPAddress = &meta.IP
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("auth service: create session %w", err)
	}
	return tokenPair, nil
}

// deriveUsername формирует username из email.
func deriveUsername(email string) string {
	name := strings.Split(email, "@")[0]
	name = strings.NewReplacer(".", "_", "+", "_").Replace(name)
	name = strings.ToLower(name)
	if len(name) < validation.MinUsernameLength {
		name = "user_" + uuid.NewString()[:6]
	}
	return name
}
