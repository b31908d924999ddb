package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testMerchantID = "123e4567-e89b-12d3-a456-426614174000"

func createValidJWT(email, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})

	tokenString, _ := token.SignedString([]byte("test-secret"))
	return tokenString
}

func testConfig() JWTConfig {
	return JWTConfig{
		Secret: "test-secret",
		Logger: zap.NewNop(),
	}
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		user, err := GetUserFromContext(c)
		assert.NoError(t, err)
		assert.Equal(t, testMerchantID, user.UserID)
		assert.Equal(t, "test@example.com", user.Email)
		assert.Equal(t, "admin", user.Role)

		merchantID, err := GetMerchantID(c)
		assert.NoError(t, err)
		assert.Equal(t, testMerchantID, merchantID.String())

		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+createValidJWT("test@example.com", "admin"))
	req.Header.Set("X-Merchant-Id", testMerchantID)
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_MissingAuthorizationHeader(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err) // Middleware handles the error response
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")
}

func TestJWTMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", createValidJWT("test@example.com", "admin"))
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString([]byte("wrong-secret"))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	req.Header.Set("X-Merchant-Id", testMerchantID)
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestJWTMiddleware_MissingMerchantIdHeader(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+createValidJWT("test@example.com", "admin"))
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_MERCHANT_ID")
}

func TestJWTMiddleware_InvalidMerchantIdFormat(t *testing.T) {
	e := echo.New()
	middleware := JWTMiddleware(testConfig())

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+createValidJWT("test@example.com", "admin"))
	req.Header.Set("X-Merchant-Id", "not-a-uuid")
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_MERCHANT_ID_FORMAT")
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	config := testConfig()
	config.SkipPaths = []string{"/health", "/webhook"}

	e := echo.New()
	middleware := JWTMiddleware(config)

	handler := middleware(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// No Authorization header - should still pass
	rec := httptest.NewRecorder()

	err := handler(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMerchantID_NoUserInContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_, err := GetMerchantID(c)
	assert.Error(t, err)
}
