package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleVendor  Role = "vendor"
)

// Principal is the authenticated caller: a user id plus a capability tag.
// Authorization checks compare the tag once per entry point.
type Principal struct {
	UserID string
	Role   Role
}

// ExtractTokenFromRequest pulls the bearer token out of the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// PrincipalFromJWT parses the token claims into a Principal. Signature
// verification belongs to the identity provider sitting in front of this
// service; here the claims are decoded for identity and role only.
func PrincipalFromJWT(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, errors.New("token has no subject claim")
	}

	role, _ := claims["role"].(string)
	switch Role(role) {
	case RoleStudent, RoleVendor:
	default:
		return Principal{}, fmt.Errorf("unknown role claim %q", role)
	}

	return Principal{UserID: sub, Role: Role(role)}, nil
}
