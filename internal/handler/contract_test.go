package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func rawBody(t *testing.T, app *fiber.App, req *http.Request) interface{} {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestComplaintListContract(t *testing.T) {
	schema := compileSchema(t, "complaint_list.schema.json")
	f := newAPIFixture(t, nil)
	student, _ := f.signIn(t, "asha@campus.edu", "Asha", "Computer Science", models.RoleStudent)
	admin, _ := f.signIn(t, "admin@campus.edu", "Admin", "Other", models.RoleAdmin)

	resp, env := f.do(t, http.MethodPost, "/api/v1/complaints", student, dto.ComplaintCreateRequest{
		Category: "Hostel", Description: "Hot water is unavailable in block B every morning.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.ComplaintResponse
	decodeData(t, env, &created)

	f.do(t, http.MethodPost, "/api/v1/complaints", student, dto.ComplaintCreateRequest{
		Category: "Sports", Description: "The football ground lights have been off for a week.",
	})
	resp, _ = f.do(t, http.MethodPatch, "/api/v1/complaints/"+created.ID+"/resolve", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	require.NoError(t, schema.Validate(rawBody(t, f.app, req)))
}

func TestLoginContract(t *testing.T) {
	schema := compileSchema(t, "auth_session.schema.json")
	f := newAPIFixture(t, nil)
	f.signIn(t, "ravi@campus.edu", "Ravi", "Civil", models.RoleStudent)

	payload, err := json.Marshal(dto.LoginRequest{Email: "ravi@campus.edu", Password: "secret1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, schema.Validate(rawBody(t, f.app, req)))
}
