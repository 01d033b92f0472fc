package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// JWTKey signs librarian tokens issued by the identity provider.
var JWTKey = []byte("my_secret_key")

type Claims struct {
	Profile struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"profile"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type contextKey int

const (
	userNameKey contextKey = iota + 1
	userRoleKey
)

func SetAuthContext(ctx context.Context, username, role string) context.Context {
	ctx = context.WithValue(ctx, userNameKey, username)
	return context.WithValue(ctx, userRoleKey, role)
}

// UserName returns the authenticated librarian identity set by the auth middleware.
func UserName(ctx context.Context) (string, error) {
	username, ok := ctx.Value(userNameKey).(string)
	if !ok || username == "" {
		return "", errors.New("no authenticated user")
	}
	return username, nil
}
