package user

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/darasa/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid session token")
)

// Claims signs the locally persisted session so a tampered slot is rejected
// on load instead of restoring a forged identity or role.
type Claims struct {
	jwt.StandardClaims
	Role     string `json:"role"`
	Remember bool   `json:"rmb,omitempty"`
}

// MakeSessionToken signs the remembered session's identity and role.
func MakeSessionToken(s Session) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:   core.Conf.GetString("appName"),
			Subject:  s.User.ID,
			IssuedAt: NowFunc().Unix(),
		},
		Role:     s.User.Role,
		Remember: s.Remember,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(core.Conf.GetString("secretKey")))
}

// VerifySessionToken checks that a persisted token matches the session it was
// stored alongside and has not been tampered with.
func VerifySessionToken(tokenStr string, s Session) error {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(core.Conf.GetString("secretKey")), nil
	})
	if err != nil || !token.Valid {
		return errInvalidToken
	}
	if claims.Subject != s.User.ID || claims.Role != s.User.Role {
		return errInvalidToken
	}
	return nil
}
