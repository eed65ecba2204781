package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/darkvj25/isopos/internal/domain"
)

// TokenVerifier checks bearer tokens issued by the external auth service.
// Tokens are HS256 with a shared secret and carry sub, name and role.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

func (v *TokenVerifier) ParseToken(tokenStr string) (domain.Actor, error) {
	if len(v.secret) == 0 {
		return domain.Actor{}, errors.New("token verification is not configured")
	}

	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithExpirationRequired(), jwtlib.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	if claims.Role != domain.RoleCashier && claims.Role != domain.RoleAdmin {
		return domain.Actor{}, errors.New("invalid token role")
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = sub
	}
	return domain.Actor{ID: sub, Name: name, Role: claims.Role}, nil
}

// Sign issues a token the verifier accepts. The server never calls it; it
// exists for tests and local tooling that stand in for the auth service.
func (v *TokenVerifier) Sign(actor domain.Actor, ttl time.Duration) (string, error) {
	now := v.now().UTC()
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
		Name: actor.Name,
		Role: actor.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
