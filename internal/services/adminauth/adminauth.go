package adminauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/draftlane/draftlane-backend/internal/data/repos"
	types "github.com/draftlane/draftlane-backend/internal/domain"
	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
	"github.com/draftlane/draftlane-backend/internal/platform/ctxutil"
	"github.com/draftlane/draftlane-backend/internal/platform/dbctx"
	"github.com/draftlane/draftlane-backend/internal/platform/envutil"
	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

type Claims struct {
	AdminID string `json:"admin_id"`
	jwt.RegisteredClaims
}

type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	// SetContextFromToken validates a bearer token and returns a context
	// carrying the admin identity.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	Register(ctx context.Context, email, password string) error
	// EnsureAdmin registers the given admin unless one with that email
	// already exists. Safe to run on every boot.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func ConfigFromEnv() (Config, error) {
	secret := strings.TrimSpace(envutil.String("ADMIN_JWT_SECRET", ""))
	if secret == "" {
		return Config{}, apierr.FatalConfig("adminauth.config", "missing ADMIN_JWT_SECRET")
	}
	return Config{
		JWTSecret: secret,
		TokenTTL:  envutil.Seconds("ADMIN_TOKEN_TTL_SECONDS", 12*time.Hour),
	}, nil
}

type service struct {
	log    *logger.Logger
	admins repos.AdminUserRepo
	cfg    Config
}

func NewService(baseLog *logger.Logger, admins repos.AdminUserRepo, cfg Config) Service {
	return &service{
		log:    baseLog.With("service", "AdminAuthService"),
		admins: admins,
		cfg:    cfg,
	}
}

func (s *service) Register(ctx context.Context, email, password string) error {
	if len(password) < 12 {
		return apierr.Validation("adminauth.register", "password must be at least 12 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.admins.Create(dbctx.New(ctx), &types.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
	})
	return err
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.admins.GetByEmail(dbctx.New(ctx), email)
	if err == nil {
		return nil
	}
	if !apierr.IsCode(err, apierr.CodeNotFound) {
		return err
	}
	if err := s.Register(ctx, email, password); err != nil {
		return err
	}
	s.log.Info("bootstrapped admin account", "email", email)
	return nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.admins.GetByEmail(dbctx.New(ctx), email)
	if err != nil {
		// Same response for unknown email and bad password.
		return "", apierr.Validation("adminauth.login", "invalid credentials")
	}
	if !admin.Active {
		return "", apierr.Validation("adminauth.login", "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", apierr.Validation("adminauth.login", "invalid credentials")
	}
	now := time.Now()
	claims := Claims{
		AdminID: admin.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	s.log.Info("admin logged in", "admin_id", admin.ID)
	return signed, nil
}

func (s *service) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return ctx, apierr.Validation("adminauth.verify", "invalid or expired token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.AdminID == "" {
		return ctx, apierr.Validation("adminauth.verify", "invalid token claims")
	}
	if _, err := uuid.Parse(claims.AdminID); err != nil {
		return ctx, apierr.Validation("adminauth.verify", "invalid token claims")
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{}
	}
	rd.AdminID = claims.AdminID
	return ctxutil.WithRequestData(ctx, rd), nil
}
