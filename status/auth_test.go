package status

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func authRequest(t *testing.T, cfg AuthConfig, header string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/op", OperatorAuth(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code
}

func signOperatorToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, OperatorClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestOperatorAuthDisabledPassesThrough(t *testing.T) {
	if code := authRequest(t, AuthConfig{}, ""); code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", code)
	}
}

func TestOperatorAuthRejectsMissingHeader(t *testing.T) {
	cfg := AuthConfig{Enabled: true, JWTSecret: "secret"}
	if code := authRequest(t, cfg, ""); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestOperatorAuthRejectsBadScheme(t *testing.T) {
	cfg := AuthConfig{Enabled: true, JWTSecret: "secret"}
	if code := authRequest(t, cfg, "Basic abc"); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestOperatorAuthStaticToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	cfg := AuthConfig{Enabled: true, TokenHash: string(hash)}

	if code := authRequest(t, cfg, "Bearer s3cret-token"); code != http.StatusOK {
		t.Errorf("valid static token: status = %d, want 200", code)
	}
	if code := authRequest(t, cfg, "Bearer wrong-token"); code != http.StatusUnauthorized {
		t.Errorf("wrong static token: status = %d, want 401", code)
	}
}

func TestOperatorAuthJWT(t *testing.T) {
	cfg := AuthConfig{Enabled: true, JWTSecret: "signing-secret"}

	good := signOperatorToken(t, "signing-secret", "operator")
	if code := authRequest(t, cfg, "Bearer "+good); code != http.StatusOK {
		t.Errorf("valid JWT: status = %d, want 200", code)
	}

	wrongRole := signOperatorToken(t, "signing-secret", "viewer")
	if code := authRequest(t, cfg, "Bearer "+wrongRole); code != http.StatusUnauthorized {
		t.Errorf("wrong role: status = %d, want 401", code)
	}

	wrongKey := signOperatorToken(t, "other-secret", "operator")
	if code := authRequest(t, cfg, "Bearer "+wrongKey); code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", code)
	}
}
