package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

func TestNewValidatorChecksBranch(t *testing.T) {
	v := NewValidator()
	req := RegisterRequest{Email: "asha@campus.edu", Password: "secret1", Name: "Asha"}

	for _, branch := range models.Branches {
		req.Branch = branch
		require.NoError(t, v.Struct(req), branch)
	}

	for _, branch := range []string{"Computer_Science", "electronics", "Astrology"} {
		req.Branch = branch
		require.Error(t, v.Struct(req), branch)
	}
}
