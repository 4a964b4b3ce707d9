// Package jwttoken validates the access tokens issued by the identity
// service. This backend never issues end-user tokens itself; GenerateToken
// exists for tests and local tooling.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"communiserver/internal/scope"
	dErrors "communiserver/pkg/domain-errors"
)

// Claims are the JWT claims carried by an access token. The location claims
// mirror the actor's jurisdiction bindings.
type Claims struct {
	Role      string `json:"role"`
	CellID    string `json:"cell_id,omitempty"`
	VillageID string `json:"village_id,omitempty"`
	IsiboID   string `json:"isibo_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT validation (and creation, for tests).
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateToken signs a token for the given actor.
func (s *JWTService) GenerateToken(actor scope.ActorContext, expiresIn time.Duration) (string, error) {
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if actor.CellID != nil {
		claims.CellID = actor.CellID.String()
	}
	if actor.VillageID != nil {
		claims.VillageID = actor.VillageID.String()
	}
	if actor.IsiboID != nil {
		claims.IsiboID = actor.IsiboID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning the actor it
// represents.
func (s *JWTService) ValidateToken(tokenString string) (scope.ActorContext, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims.Actor()
}

// Actor converts validated claims into an ActorContext.
func (c *Claims) Actor() (scope.ActorContext, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "invalid subject claim")
	}
	role := scope.Role(c.Role)
	if !role.IsValid() {
		return scope.ActorContext{}, dErrors.New(dErrors.CodeUnauthorized, "unknown role claim")
	}

	actor := scope.ActorContext{UserID: userID, Role: role}
	parseOpt := func(raw string, dst **uuid.UUID, claim string) error {
		if raw == "" {
			return nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return dErrors.Newf(dErrors.CodeUnauthorized, "invalid %s claim", claim)
		}
		*dst = &id
		return nil
	}
	if err := parseOpt(c.CellID, &actor.CellID, "cell_id"); err != nil {
		return scope.ActorContext{}, err
	}
	if err := parseOpt(c.VillageID, &actor.VillageID, "village_id"); err != nil {
		return scope.ActorContext{}, err
	}
	if err := parseOpt(c.IsiboID, &actor.IsiboID, "isibo_id"); err != nil {
		return scope.ActorContext{}, err
	}
	return actor, nil
}
