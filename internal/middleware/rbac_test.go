package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func guardedApp(identity *models.Identity, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if identity != nil {
			c.Locals(identityLocalKey, *identity)
		}
		return c.Next()
	})
	app.Get("/protected", guard, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func guardRedirect(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var payload struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Details["redirect"]
}

func TestGuardAllowsListedRoles(t *testing.T) {
	admin := &models.Identity{UserID: "1", Role: models.RoleAdmin}
	app := guardedApp(admin, Guard(models.RoleHOD, models.RoleAdmin))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardRejectsOtherRolesWithDefaultRedirect(t *testing.T) {
	student := &models.Identity{UserID: "2", Role: models.RoleStudent}
	app := guardedApp(student, GuardRoute(access.PathAllComplaints))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, access.PathDashboard, guardRedirect(t, resp))
}

func TestGuardRequiresIdentity(t *testing.T) {
	app := guardedApp(nil, Guard())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, access.PathSignIn, guardRedirect(t, resp))
}

func TestGuardEmptySetAdmitsAnyRole(t *testing.T) {
	for _, role := range models.Roles() {
		app := guardedApp(&models.Identity{UserID: "3", Role: role}, GuardRoute(access.PathDashboard))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, role)
	}
}
