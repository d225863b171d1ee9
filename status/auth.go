package status

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/kbukum/netguard/errors"
)

// OperatorClaims are the JWT claims operator tokens carry.
type OperatorClaims struct {
	gojwt.RegisteredClaims
	Role string `json:"role"`
}

// OperatorAuth returns a middleware protecting operator endpoints. A Bearer
// credential passes when it matches the configured static token hash, or
// parses as an HS256 JWT with the operator role.
func OperatorAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, apperrors.Unauthorized("authorization header required"))
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" {
			abortUnauthorized(c, apperrors.Unauthorized("invalid authorization header format"))
			return
		}

		if cfg.TokenHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(cfg.TokenHash), []byte(token)) == nil {
				c.Next()
				return
			}
		}

		if cfg.JWTSecret != "" {
			if claims, err := parseOperatorToken(cfg.JWTSecret, token); err == nil {
				c.Set("operator", claims.Subject)
				c.Next()
				return
			}
		}

		abortUnauthorized(c, apperrors.InvalidToken())
	}
}

// parseOperatorToken validates an HS256 JWT and requires the operator role.
func parseOperatorToken(secret, token string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, apperrors.InvalidToken()
	}
	if claims.Role != "operator" {
		return nil, apperrors.Forbidden("operator role required")
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, err.ToResponse())
}
