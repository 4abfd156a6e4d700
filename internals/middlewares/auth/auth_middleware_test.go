package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthJWT(testSecret), func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		return c.SendString(Actor(c) + "|" + role)
	})
	return app
}

func do(t *testing.T, app *fiber.App, authz string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/me", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAuthJWT_ValidToken(t *testing.T) {
	tok := sign(t, testSecret, jwt.MapClaims{
		"id":   "teacher-42",
		"role": "teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	code, body := do(t, newApp(), "Bearer  "+tok)
	if code != fiber.StatusOK {
		t.Fatalf("status = %d body=%s", code, body)
	}
	if body != "teacher-42|teacher" {
		t.Fatalf("body = %q", body)
	}
}

func TestAuthJWT_Rejects(t *testing.T) {
	valid := jwt.MapClaims{"id": "u1", "exp": time.Now().Add(time.Hour).Unix()}
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"bad signature":  "Bearer " + sign(t, "other-secret", valid),
		"expired":        "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no exp":         "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": "u1"}),
		"no id":          "Bearer " + sign(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		"numeric id":     "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": 7, "exp": time.Now().Add(time.Hour).Unix()}),
	}
	app := newApp()
	for name, authz := range cases {
		t.Run(name, func(t *testing.T) {
			if code, _ := do(t, app, authz); code != fiber.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", code)
			}
		})
	}
}

func TestAuthJWT_MissingSecret(t *testing.T) {
	app := fiber.New()
	app.Get("/me", AuthJWT(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	tok := sign(t, testSecret, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	if code, _ := do(t, app, "Bearer "+tok); code != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
}
