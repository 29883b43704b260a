package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return dto.NewValidator()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedIdentity(t *testing.T, accounts repository.AccountRepository, email, name, branch string, role models.Role) models.Identity {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "unused"}
	require.NoError(t, accounts.Create(context.Background(), user, &models.Profile{Email: email, Name: name, Branch: branch}, role))
	return models.Identity{UserID: user.ID, Email: email, Name: name, Branch: branch, Role: role}
}

type recordingComplaintNotifier struct {
	changes []models.Complaint
}

func (r *recordingComplaintNotifier) ComplaintChanged(ctx context.Context, complaint models.Complaint) {
	r.changes = append(r.changes, complaint)
}

type recordingAccountNotifier struct {
	userIDs []string
}

func (r *recordingAccountNotifier) AccountChanged(ctx context.Context, userID string) {
	r.userIDs = append(r.userIDs, userID)
}
