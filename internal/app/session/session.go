// Package session turns identity provider bearer tokens into callers.
package session

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt"

	"camptrade/internal/app/model"
)

var ErrInvalidToken = errors.New("invalid token")

type Reader interface {
	Read(ctx context.Context, token string) (*model.Caller, error)
}

type Creator interface {
	Issue(ctx context.Context, c *model.Caller) (string, error)
}

type Manager interface {
	Reader
	Creator
}

// Claims carried by identity provider tokens; the subject is the user id.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}
