package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/models"
	"github.com/thetowsif/thenewspage/internal/repositories"
)

// Mailer publishes outbound account emails to a message queue for delivery.
type Mailer interface {
	PublishPasswordReset(messageBody map[string]interface{}) error
}

// AuthService handles business logic for registration, authentication, and
// the password lifecycle. Reset tokens are signed JWTs whose jti claim points
// at a single-use PasswordReset record.
type AuthService struct {
	userRepo    repositories.UserRepository
	resetRepo   repositories.PasswordResetRepository
	mailer      Mailer
	resetSecret []byte
	resetTTL    time.Duration
	baseURL     string
}

// NewAuthService creates a new AuthService. The mailer may be nil, in which
// case reset emails are skipped (used in tests).
func NewAuthService(userRepo repositories.UserRepository, resetRepo repositories.PasswordResetRepository, mailer Mailer, resetSecret, baseURL string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		resetRepo:   resetRepo,
		mailer:      mailer,
		resetSecret: []byte(resetSecret),
		resetTTL:    time.Hour, // Reset tokens valid for 1 hour
		baseURL:     baseURL,
	}
}

// RegisterUser registers a new user, hashes their password, and saves them to
// the database. Registration does not establish a session.
func (s *AuthService) RegisterUser(user *models.User) error {
	if existingUser, err := s.userRepo.GetByUsername(user.Username); err == nil && existingUser != nil {
		return fmt.Errorf("username '%s': %w", user.Username, ErrUsernameTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the user on
// success. It does not reveal whether the username exists.
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces a user's password after verifying the old one.
func (s *AuthService) ChangePassword(userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account behind the given
// email and hands the reset link to the mailer. When the email is unknown it
// silently does nothing, so the endpoint never discloses which accounts exist.
func (s *AuthService) RequestPasswordReset(email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up email: %w", err)
	}

	record := &models.PasswordReset{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resetRepo.Create(record); err != nil {
		return fmt.Errorf("failed to create reset record: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"jti": record.ID,
		"exp": record.ExpiresAt.Unix(),
		"iat": time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.resetSecret)
	if err != nil {
		return fmt.Errorf("failed to sign reset token: %w", err)
	}

	if s.mailer != nil {
		message := map[string]interface{}{
			"to":        user.Email,
			"username":  user.Username,
			"reset_url": fmt.Sprintf("%s/accounts/reset/%s", s.baseURL, tokenString),
		}
		if err := s.mailer.PublishPasswordReset(message); err != nil {
			// The reset record stays valid; delivery failures should not
			// surface to the requester.
			log.Printf("Warning: failed to publish password reset email for user %s: %v", user.ID, err)
		}
	}
	return nil
}

// ResolveResetToken validates a reset token and returns the user it belongs
// to. A token is valid only while its signature checks out, it has not
// expired, and its single-use record is still unused.
func (s *AuthService) ResolveResetToken(tokenString string) (*models.User, error) {
	user, _, err := s.resolveResetToken(tokenString)
	return user, err
}

func (s *AuthService) resolveResetToken(tokenString string) (*models.User, *models.PasswordReset, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.resetSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil, ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	if jti == "" || sub == "" {
		return nil, nil, ErrInvalidToken
	}

	record, err := s.resetRepo.GetByID(jti)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	if record.UsedAt.Valid || time.Now().After(record.ExpiresAt) || record.UserID != sub {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(sub)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	return user, record, nil
}

// ConfirmPasswordReset exchanges a valid reset token for a new password and
// burns the token. A second exchange with the same token fails.
func (s *AuthService) ConfirmPasswordReset(tokenString, newPassword string) error {
	user, record, err := s.resolveResetToken(tokenString)
	if err != nil {
		return err
	}

	// Mark the record used first: MarkUsed only touches unused rows, so a
	// concurrent second exchange loses here.
	if err := s.resetRepo.MarkUsed(record.ID); err != nil {
		return ErrInvalidToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to set new password: %w", err)
	}
	return nil
}
