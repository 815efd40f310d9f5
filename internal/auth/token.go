package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken indicates a malformed, expired or wrongly signed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType indicates a refresh token used as access token or vice versa.
	ErrWrongTokenType = errors.New("unexpected token type")
)

// Claims is the normalized view of a verified token.
type Claims struct {
	UserID    uint
	Role      string
	Name      string
	StudentID *uint
	Type      string
	ExpiresAt time.Time
}

// Subject identifies the account a token is minted for.
type Subject struct {
	UserID    uint
	Role      string
	Name      string
	StudentID *uint
}

// Issue signs a token of the given type with HS256.
func Issue(subject Subject, tokenType, secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("missing signing secret")
	}
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(subject.UserID), 10),
		"role": strings.ToLower(subject.Role),
		"name": subject.Name,
		"typ":  tokenType,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	if subject.StudentID != nil {
		claims["student_id"] = *subject.StudentID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the token signature, expiry and type and returns its claims.
func Parse(tokenString, secret, expectedType string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		Role: extractRole(mapClaims),
		Type: stringClaim(mapClaims, "typ"),
		Name: stringClaim(mapClaims, "name"),
	}

	if expectedType != "" && claims.Type != "" && claims.Type != expectedType {
		return Claims{}, ErrWrongTokenType
	}
	if expectedType == TokenTypeRefresh && claims.Type != TokenTypeRefresh {
		return Claims{}, ErrWrongTokenType
	}

	userID := extractUserID(mapClaims)
	if userID == nil {
		return Claims{}, ErrInvalidToken
	}
	claims.UserID = *userID

	if raw, ok := mapClaims["student_id"]; ok {
		if studentID, err := normalizeID(raw); err == nil {
			claims.StudentID = &studentID
		}
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

func extractUserID(claims jwt.MapClaims) *uint {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
						return role
					}
				}
			}
		}
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return value
	}
	return ""
}
