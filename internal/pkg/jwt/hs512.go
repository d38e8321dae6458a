package jwt

import (
	"errors"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the subject identity.
type Claims struct {
	libJWT.RegisteredClaims

	SubjectID int64  `json:"subject_id,string"`
	Email     string `json:"email"`
}

// HS512Config configures an HS512 signer.
type HS512Config struct {
	Secret   []byte
	Issuer   string
	Audience []string
	TTL      time.Duration
	Clock    clocker
	TokenID  generator
}

// HS512 signs and verifies tokens with an HMAC-SHA512 secret.
type HS512 struct {
	cfg HS512Config
}

// NewHS512 validates the key length and returns a signer.
func NewHS512(cfg HS512Config) (*HS512, error) {
	if len(cfg.Secret) < 64 {
		return nil, ErrKeyTooShort
	}

	return &HS512{cfg: cfg}, nil
}

// Generate creates a signed token for the subject.
func (h *HS512) Generate(subjectID int64, email string) (string, error) {
	now := h.cfg.Clock.Now()

	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        h.cfg.TokenID.Generate(),
			Subject:   strconv.FormatInt(subjectID, 10),
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audience,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		SubjectID: subjectID,
		Email:     email,
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
}

// Verify parses a token string and returns its claims when valid.
func (h *HS512) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	token, err := libJWT.ParseWithClaims(tokenStr, &claims,
		func(t *libJWT.Token) (any, error) {
			if t.Method != libJWT.SigningMethodHS512 {
				return nil, ErrUnexpectedMethod
			}
			return h.cfg.Secret, nil
		},
		libJWT.WithIssuer(h.cfg.Issuer),
		libJWT.WithAudience(h.cfg.Audience...),
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	return claims, nil
}
