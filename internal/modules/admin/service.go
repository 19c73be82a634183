package admin

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"boatcatalog/internal/pkg/jwt"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
	adminRole              = "admin"
)

// Service authenticates the single catalog editor account configured
// through the environment.
type Service struct {
	username     string
	passwordHash []byte
	jwt          *jwt.Service
	failures     *cache.Cache
}

func NewService(username, passwordHash string, jwtService *jwt.Service) *Service {
	return &Service{
		username:     strings.TrimSpace(username),
		passwordHash: []byte(strings.TrimSpace(passwordHash)),
		jwt:          jwtService,
		failures:     cache.New(lockoutDuration, 2*lockoutDuration),
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest, clientKey string) (*LoginResponse, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrLoginDisabled
	}

	key := clientKey + "|" + strings.ToLower(strings.TrimSpace(req.Username))
	if n, ok := s.failures.Get(key); ok && n.(int) >= maxFailedLoginAttempts {
		return nil, ErrAccountLocked
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.Username)), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		failed := s.recordFailure(key)
		log.Printf("admin action: Login failed username=%q attempts=%d", req.Username, failed)
		if failed >= maxFailedLoginAttempts {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}
	s.failures.Delete(key)

	token, err := s.jwt.GenerateToken(s.username, adminRole)
	if err != nil {
		return nil, err
	}
	log.Printf("admin action: Login username=%q", s.username)

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.jwt.TTL().Seconds()),
	}, nil
}

func (s *Service) recordFailure(key string) int {
	if err := s.failures.Add(key, 1, cache.DefaultExpiration); err == nil {
		return 1
	}
	n, err := s.failures.IncrementInt(key, 1)
	if err != nil {
		return 1
	}
	return n
}
