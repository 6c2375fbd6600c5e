package service

import (
	"context"
	"errors"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, logger: logger}
}

type TextbookFilter struct {
	CategoryID  string
	SchoolID    string
	GradeLevel  string
	Subject     string
	InStockOnly bool
	// IncludeInactive is only honored for administrative listings.
	IncludeInactive bool
	Page            int
	PerPage         int
}

type TextbookPage struct {
	Textbooks []models.Textbook `json:"textbooks"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

func (s *CatalogService) List(ctx context.Context, filter TextbookFilter) (*TextbookPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Textbook{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.SchoolID != "" {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.GradeLevel != "" {
		query = query.Where("grade_level = ?", filter.GradeLevel)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.InStockOnly {
		query = query.Where("stock_quantity > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to count textbooks", err)
	}

	var textbooks []models.Textbook
	offset := (filter.Page - 1) * filter.PerPage
	if err := query.Order("title").Offset(offset).Limit(filter.PerPage).Find(&textbooks).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list textbooks", err)
	}

	return &TextbookPage{Textbooks: textbooks, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

func (s *CatalogService) Get(ctx context.Context, textbookID string, includeInactive bool) (*models.Textbook, error) {
	query := s.db.WithContext(ctx).Where("id = ?", textbookID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var textbook models.Textbook
	if err := query.First(&textbook).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeTextbookNotFound, "textbook not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load textbook", err)
	}
	return &textbook, nil
}

type TextbookInput struct {
	CategoryID    string
	SchoolID      string
	Title         string
	Price         float64
	StockQuantity int
	GradeLevel    string
	Subject       string
	ImageURL      string
}

func (s *CatalogService) Create(ctx context.Context, input TextbookInput) (*models.Textbook, error) {
	if input.Title == "" {
		return nil, apperr.New(apperr.CodeValidation, "title is required")
	}
	if input.Price < 0 {
		return nil, apperr.New(apperr.CodeValidation, "price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, apperr.New(apperr.CodeValidation, "stock quantity must not be negative")
	}

	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", input.CategoryID, true).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeCategoryNotFound, "category not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load category", err)
	}

	textbook := &models.Textbook{
		ID:            uuid.NewString(),
		CategoryID:    input.CategoryID,
		SchoolID:      input.SchoolID,
		Title:         input.Title,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		GradeLevel:    input.GradeLevel,
		Subject:       input.Subject,
		ImageURL:      input.ImageURL,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(textbook).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to create textbook", err)
	}

	s.logger.Info("Textbook created",
		zap.String("textbook_id", textbook.ID),
		zap.String("title", textbook.Title))

	return textbook, nil
}

// TextbookUpdate applies only the fields that are set; each field is
// validated on its own.
type TextbookUpdate struct {
	CategoryID    *string
	Title         *string
	Price         *float64
	StockQuantity *int
	GradeLevel    *string
	Subject       *string
	ImageURL      *string
	IsActive      *bool
}

func (s *CatalogService) Update(ctx context.Context, textbookID string, update TextbookUpdate) (*models.Textbook, error) {
	textbook, err := s.Get(ctx, textbookID, true)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.CategoryID != nil {
		updates["category_id"] = *update.CategoryID
	}
	if update.Title != nil {
		if *update.Title == "" {
			return nil, apperr.New(apperr.CodeValidation, "title must not be empty")
		}
		updates["title"] = *update.Title
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, apperr.New(apperr.CodeValidation, "price must not be negative")
		}
		updates["price"] = *update.Price
	}
	if update.StockQuantity != nil {
		if *update.StockQuantity < 0 {
			return nil, apperr.New(apperr.CodeValidation, "stock quantity must not be negative")
		}
		updates["stock_quantity"] = *update.StockQuantity
	}
	if update.GradeLevel != nil {
		updates["grade_level"] = *update.GradeLevel
	}
	if update.Subject != nil {
		updates["subject"] = *update.Subject
	}
	if update.ImageURL != nil {
		updates["image_url"] = *update.ImageURL
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if len(updates) == 0 {
		return textbook, nil
	}

	if err := s.db.WithContext(ctx).Model(textbook).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to update textbook", err)
	}
	return s.Get(ctx, textbookID, true)
}

// Deactivate soft-deletes the textbook so existing order lines keep a valid
// reference.
func (s *CatalogService) Deactivate(ctx context.Context, textbookID string) error {
	textbook, err := s.Get(ctx, textbookID, true)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(textbook).Update("is_active", false).Error; err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to deactivate textbook", err)
	}

	s.logger.Info("Textbook deactivated", zap.String("textbook_id", textbookID))
	return nil
}

func (s *CatalogService) LowStock(ctx context.Context, threshold int) ([]models.Textbook, error) {
	var textbooks []models.Textbook
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity > 0 AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity").
		Find(&textbooks).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list low-stock textbooks", err)
	}
	return textbooks, nil
}

func (s *CatalogService) OutOfStock(ctx context.Context) ([]models.Textbook, error) {
	var textbooks []models.Textbook
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity = 0", true).
		Order("title").
		Find(&textbooks).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list out-of-stock textbooks", err)
	}
	return textbooks, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list categories", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "category name is required")
	}

	var existing models.Category
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, apperr.Newf(apperr.CodeDuplicate, "category %q already exists", name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to check category", err)
	}

	category := &models.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to create category", err)
	}
	return category, nil
}
