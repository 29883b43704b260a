package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// AccountFilter defines filters for listing accounts from the admin panel.
type AccountFilter struct {
	Search   string
	Role     models.Role
	Page     int
	PageSize int
}

// AccountRecord pairs a profile with its role row.
type AccountRecord struct {
	Profile models.Profile
	Role    models.Role
}

// AccountRepository persists identities, profiles and role bindings.
type AccountRepository interface {
	Create(ctx context.Context, user *models.User, profile *models.Profile, role models.Role) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetIdentity(ctx context.Context, userID string) (models.Identity, error)
	List(ctx context.Context, filter AccountFilter) ([]AccountRecord, int64, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
	UpdateRole(ctx context.Context, userID string, role models.Role) error
	Delete(ctx context.Context, userID string) error
}

type accountRepository struct {
	db *gorm.DB
}

type accountRow struct {
	UserID    string
	Email     string
	Name      string
	Branch    string
	Role      models.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

const accountColumns = "profiles.user_id, profiles.email, profiles.name, profiles.branch, profiles.created_at, profiles.updated_at, user_roles.role"

func (row accountRow) profile() models.Profile {
	return models.Profile{
		UserID:    row.UserID,
		Email:     row.Email,
		Name:      row.Name,
		Branch:    row.Branch,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// NewAccountRepository constructs the account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, user *models.User, profile *models.Profile, role models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}

		return tx.Create(&models.UserRole{UserID: user.ID, Role: role}).Error
	})
}

func (r *accountRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *accountRepository) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *accountRepository) GetIdentity(ctx context.Context, userID string) (models.Identity, error) {
	var row accountRow
	err := r.joined(ctx).
		Select(accountColumns).
		Where("profiles.user_id = ?", userID).
		Take(&row).Error
	if err != nil {
		return models.Identity{}, err
	}

	return models.Identity{
		UserID: row.UserID,
		Email:  row.Email,
		Name:   row.Name,
		Branch: row.Branch,
		Role:   row.Role,
	}, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]AccountRecord, int64, error) {
	query := r.joined(ctx)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(profiles.name) LIKE ? OR LOWER(profiles.email) LIKE ? OR LOWER(profiles.branch) LIKE ?", like, like, like)
	}

	if filter.Role != "" {
		query = query.Where("user_roles.role = ?", filter.Role)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Select(accountColumns).
		Order("profiles.created_at DESC").
		Order("profiles.user_id").
		Scopes(Paginate(filter.Page, filter.PageSize))

	var rows []accountRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	records := make([]AccountRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, AccountRecord{Profile: row.profile(), Role: row.Role})
	}

	return records, total, nil
}

func (r *accountRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Role]int64, len(models.Roles()))
	for _, role := range models.Roles() {
		counts[role] = 0
	}
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}

func (r *accountRepository) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	update := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Update("role", role)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}

		deleted := tx.Where("id = ?", userID).Delete(&models.User{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *accountRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("profiles").
		Joins("JOIN user_roles ON user_roles.user_id = profiles.user_id")
}
