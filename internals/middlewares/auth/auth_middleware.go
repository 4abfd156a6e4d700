// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"log"
	"time"

	"attendance_backend/internals/configs"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	LocalUserID   = "user_id"
	LocalUserRole = "userRole"
	LocalUserName = "user_name"
)

// AuthMiddleware memakai JWT_SECRET dari config.
func AuthMiddleware() fiber.Handler {
	return AuthJWT(configs.JWTSecret)
}

// AuthJWT verifies an HS256 bearer token and stores the "id" claim as the actor.
func AuthJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1) Ambil Authorization (atau cookie)
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		// 2) Parse & verifikasi signature
		if secret == "" {
			log.Println("[ERROR] JWT_SECRET kosong")
			return fiber.NewError(fiber.StatusInternalServerError, "Missing JWT Secret")
		}
		claims := jwt.MapClaims{}
		parser := jwt.Parser{
			SkipClaimsValidation: true,
			ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		}
		if _, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}); err != nil {
			log.Println("[AUTH] Gagal parse token:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token parse error")
		}

		// 3) Validasi exp (toleransi clock skew)
		if err := validateTokenExpiry(claims, 30*time.Second); err != nil {
			log.Println("[AUTH] Exp validation:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Token expired")
		}

		// 4) Actor
		userID, err := extractUserID(claims)
		if err != nil {
			log.Println("[AUTH] user_id:", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid or missing user ID")
		}
		c.Locals(LocalUserID, userID)
		storeBasicClaimsToLocals(c, claims)

		return c.Next()
	}
}

// Actor: user id dari token; "" kalau route tidak lewat AuthJWT.
func Actor(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
