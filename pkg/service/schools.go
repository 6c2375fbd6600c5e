package service

import (
	"context"
	"errors"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/auth"
	"github.com/example/textbookhub/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SchoolService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSchoolService(db *gorm.DB, logger *zap.Logger) *SchoolService {
	return &SchoolService{db: db, logger: logger}
}

type SchoolFilter struct {
	Search     string
	Prefecture string
	ActiveOnly bool
	Page       int
	PerPage    int
}

type SchoolPage struct {
	Schools []models.School `json:"schools"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

func (s *SchoolService) List(ctx context.Context, filter SchoolFilter) (*SchoolPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.School{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.Prefecture != "" {
		query = query.Where("prefecture = ?", filter.Prefecture)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to count schools", err)
	}

	var schools []models.School
	offset := (filter.Page - 1) * filter.PerPage
	if err := query.Order("name").Offset(offset).Limit(filter.PerPage).Find(&schools).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list schools", err)
	}

	return &SchoolPage{Schools: schools, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

func (s *SchoolService) Get(ctx context.Context, schoolID string) (*models.School, error) {
	var school models.School
	if err := s.db.WithContext(ctx).Where("id = ?", schoolID).First(&school).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeSchoolNotFound, "school not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load school", err)
	}
	return &school, nil
}

type SchoolInput struct {
	Name       string
	Prefecture string
	City       string
	Address    string
	Phone      string
	Email      string
	LoginID    string
	Password   string
}

// Create registers a school together with its shared login credential.
func (s *SchoolService) Create(ctx context.Context, input SchoolInput) (*models.School, error) {
	if input.Name == "" || input.Prefecture == "" || input.City == "" {
		return nil, apperr.New(apperr.CodeValidation, "name, prefecture and city are required")
	}
	if len(input.LoginID) < 4 {
		return nil, apperr.New(apperr.CodeValidation, "login ID must be at least 4 characters long")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	}

	var existing models.School
	err = s.db.WithContext(ctx).Where("name = ?", input.Name).First(&existing).Error
	if err == nil {
		return nil, apperr.Newf(apperr.CodeDuplicate, "school %q is already registered", input.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to check school", err)
	}

	school := &models.School{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Prefecture: input.Prefecture,
		City:       input.City,
		Address:    input.Address,
		Phone:      input.Phone,
		Email:      input.Email,
		IsActive:   true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(school).Error; err != nil {
			return err
		}
		return tx.Create(&models.SchoolAuth{
			ID:           uuid.NewString(),
			SchoolID:     school.ID,
			LoginID:      input.LoginID,
			PasswordHash: hash,
			IsActive:     true,
		}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to create school", err)
	}

	s.logger.Info("School registered",
		zap.String("school_id", school.ID),
		zap.String("name", school.Name))

	return school, nil
}

type SchoolUpdate struct {
	Name       *string
	Prefecture *string
	City       *string
	Address    *string
	Phone      *string
	Email      *string
	IsActive   *bool
}

func (s *SchoolService) Update(ctx context.Context, schoolID string, update SchoolUpdate) (*models.School, error) {
	school, err := s.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		if *update.Name == "" {
			return nil, apperr.New(apperr.CodeValidation, "name must not be empty")
		}
		updates["name"] = *update.Name
	}
	if update.Prefecture != nil {
		updates["prefecture"] = *update.Prefecture
	}
	if update.City != nil {
		updates["city"] = *update.City
	}
	if update.Address != nil {
		updates["address"] = *update.Address
	}
	if update.Phone != nil {
		updates["phone"] = *update.Phone
	}
	if update.Email != nil {
		updates["email"] = *update.Email
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if len(updates) == 0 {
		return school, nil
	}

	if err := s.db.WithContext(ctx).Model(school).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to update school", err)
	}
	return s.Get(ctx, schoolID)
}

// Deactivate retires a school account without cascading deletes; its orders
// stay on the ledger.
func (s *SchoolService) Deactivate(ctx context.Context, schoolID string) error {
	school, err := s.Get(ctx, schoolID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(school).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.SchoolAuth{}).
			Where("school_id = ?", schoolID).
			Update("is_active", false).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to deactivate school", err)
	}

	s.logger.Info("School deactivated", zap.String("school_id", schoolID))
	return nil
}

// Authenticate checks a school-account login and returns the school.
func (s *SchoolService) Authenticate(ctx context.Context, loginID, password string) (*models.School, error) {
	var schoolAuth models.SchoolAuth
	err := s.db.WithContext(ctx).Where("login_id = ?", loginID).First(&schoolAuth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeInvalidCredential, "invalid login ID or password")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load school credentials", err)
	}

	if !schoolAuth.IsActive || !auth.CheckPassword(schoolAuth.PasswordHash, password) {
		return nil, apperr.New(apperr.CodeInvalidCredential, "invalid login ID or password")
	}

	school, err := s.Get(ctx, schoolAuth.SchoolID)
	if err != nil {
		return nil, err
	}
	if !school.IsActive {
		return nil, apperr.New(apperr.CodeInvalidCredential, "school account is inactive")
	}
	return school, nil
}
