package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
)

// session.Manager interface implementation
var _ Manager = (*JWT)(nil)

type JWT struct {
	issuer        string
	secretKey     []byte
	tokenLifetime time.Duration
	now           func() time.Time
}

func (svc *JWT) LoggerComponent() string {
	return "Session.JWT"
}

type Option func(*JWT)

func WithIssuer(issuer string) Option {
	return func(s *JWT) {
		s.issuer = issuer
	}
}

func WithTokenLifetime(d time.Duration) Option {
	return func(s *JWT) {
		s.tokenLifetime = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *JWT) {
		s.now = now
	}
}

func NewJWT(secretKey string, opts ...Option) *JWT {
	s := &JWT{
		secretKey:     []byte(secretKey),
		tokenLifetime: time.Hour,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue method of session.Creator implementation
func (svc *JWT) Issue(ctx context.Context, c *model.Caller) (string, error) {
	l := logger.Get(ctx, svc)
	l.Debug().Str("user_id", c.ID).Msg("Issue")

	now := svc.now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   c.ID,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(svc.tokenLifetime).Unix(),
			Issuer:    svc.issuer,
		},
		Email: c.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	strToken, err := token.SignedString(svc.secretKey)
	if err != nil {
		l.Error().Err(err).Send()

		return "", fmt.Errorf("jwt encode: %w", err)
	}

	return strToken, nil
}

// Read method of session.Reader implementation
func (svc *JWT) Read(ctx context.Context, tokenString string) (*model.Caller, error) {
	l := logger.Get(ctx, svc)

	c := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return svc.secretKey, nil
	})
	if err != nil {
		l.Debug().Err(err).Msg("ParseWithClaims failed")

		return nil, ErrInvalidToken
	}

	if !token.Valid || c.Subject == "" {
		l.Debug().Msg("Invalid token")

		return nil, ErrInvalidToken
	}

	if svc.issuer != "" && !c.VerifyIssuer(svc.issuer, true) {
		l.Debug().Str("issuer", c.Issuer).Msg("Unexpected issuer")

		return nil, ErrInvalidToken
	}

	return &model.Caller{ID: c.Subject, Email: c.Email}, nil
}
