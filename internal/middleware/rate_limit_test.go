package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKeysSignInByEmail(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimit("login", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	attempt := func(email string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`","password":"wrong1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, attempt("ravi@campus.edu"))
	require.Equal(t, fiber.StatusOK, attempt(" RAVI@campus.edu "))
	require.Equal(t, fiber.StatusTooManyRequests, attempt("ravi@campus.edu"))

	require.Equal(t, fiber.StatusOK, attempt("asha@campus.edu"))
}
