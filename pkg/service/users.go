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

type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

type RegisterInput struct {
	SchoolID  string
	Username  string
	Email     string
	Password  string
	Grade     string
	ClassName string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.Email == "" || input.Username == "" {
		return nil, apperr.New(apperr.CodeValidation, "username and email are required")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	}

	var school models.School
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", input.SchoolID, true).First(&school).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeSchoolNotFound, "school not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load school", err)
	}

	var existing models.User
	err = s.db.WithContext(ctx).Where("email = ? OR username = ?", input.Email, input.Username).First(&existing).Error
	if err == nil {
		return nil, apperr.New(apperr.CodeDuplicate, "username or email is already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to check user", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		SchoolID:     input.SchoolID,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		Grade:        input.Grade,
		ClassName:    input.ClassName,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to create user", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("school_id", user.SchoolID))

	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeInvalidCredential, "invalid email or password")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load user", err)
	}

	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.New(apperr.CodeInvalidCredential, "invalid email or password")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeUserNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load user", err)
	}
	return &user, nil
}

type ProfileUpdate struct {
	Username  *string
	Grade     *string
	ClassName *string
	SchoolID  *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Username != nil {
		if *update.Username == "" {
			return nil, apperr.New(apperr.CodeValidation, "username must not be empty")
		}
		updates["username"] = *update.Username
	}
	if update.Grade != nil {
		updates["grade"] = *update.Grade
	}
	if update.ClassName != nil {
		updates["class_name"] = *update.ClassName
	}
	if update.SchoolID != nil {
		var school models.School
		if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", *update.SchoolID, true).First(&school).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.CodeSchoolNotFound, "school not found")
			}
			return nil, apperr.Wrap(apperr.CodePersistence, "failed to load school", err)
		}
		updates["school_id"] = *update.SchoolID
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to update profile", err)
	}
	return s.Get(ctx, userID)
}

type StudentFilter struct {
	SchoolID string
	Grade    string
	Page     int
	PerPage  int
}

type StudentPage struct {
	Students []models.User `json:"students"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PerPage  int           `json:"per_page"`
}

func (s *UserService) ListStudents(ctx context.Context, filter StudentFilter) (*StudentPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleStudent, true)
	if filter.SchoolID != "" {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to count students", err)
	}

	var students []models.User
	offset := (filter.Page - 1) * filter.PerPage
	if err := query.Order("username").Offset(offset).Limit(filter.PerPage).Find(&students).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list students", err)
	}

	return &StudentPage{Students: students, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}
