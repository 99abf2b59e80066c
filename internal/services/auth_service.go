package services

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradejournal/internal/models"
)

// bcryptCost matches the cost the seed fixtures were hashed with.
const bcryptCost = 10

// AuthService defines the interface for authentication operations
type AuthService interface {
	Register(username, email, password string) (models.User, error)
	Authenticate(identifier, password string) (models.User, error)
	GetUserByID(id uint) (models.User, error)
	GenerateToken(user models.User) (string, error)
	ParseToken(tokenString string) (*models.Claims, error)
}

// authService implements the AuthService interface
type authService struct {
	db        *gorm.DB
	secretKey []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(db *gorm.DB, secretKey []byte, tokenTTL time.Duration) AuthService {
	return &authService{
		db:        db,
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
	}
}

// Register creates a user with a bcrypt password hash. Duplicate email or
// username surfaces as ErrDuplicate.
func (s *authService) Register(username, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if username != "" {
		user.Username = &username
	}

	if err := s.db.Create(&user).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

// Authenticate verifies credentials against a user matched by email or
// username. A missing user and a wrong password both return
// ErrInvalidCredentials so login failures leak nothing about existence.
func (s *authService) Authenticate(identifier, password string) (models.User, error) {
	var user models.User
	err := s.db.Where("email = ? OR username = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID loads a user row by primary key.
func (s *authService) GetUserByID(id uint) (models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

// GenerateToken creates a new signed JWT for the user
func (s *authService) GenerateToken(user models.User) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
	if user.Username != nil {
		claims.Username = *user.Username
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseToken validates a token's signature and expiry and returns its claims.
func (s *authService) ParseToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
