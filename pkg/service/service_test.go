package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/textbookhub/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a per-test in-memory database. The shared cache keeps the
// schema visible across pooled connections within one test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.School{},
		&models.SchoolAuth{},
		&models.User{},
		&models.Category{},
		&models.Textbook{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func seedSchool(t *testing.T, db *gorm.DB, name string) *models.School {
	t.Helper()
	school := &models.School{
		ID:         uuid.NewString(),
		Name:       name,
		Prefecture: "Tokyo",
		City:       "Chiyoda",
		IsActive:   true,
	}
	require.NoError(t, db.Create(school).Error)
	return school
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{
		ID:       uuid.NewString(),
		Name:     name,
		IsActive: true,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedTextbook(t *testing.T, db *gorm.DB, categoryID, title string, price float64, stock int) *models.Textbook {
	t.Helper()
	textbook := &models.Textbook{
		ID:            uuid.NewString(),
		CategoryID:    categoryID,
		Title:         title,
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(textbook).Error)
	return textbook
}

// seedCatalog sets up one category and one textbook for the common case.
func seedCatalog(t *testing.T, db *gorm.DB, title string, price float64, stock int) *models.Textbook {
	t.Helper()
	category := seedCategory(t, db, "cat-"+title)
	return seedTextbook(t, db, category.ID, title, price, stock)
}

func currentStock(t *testing.T, db *gorm.DB, textbookID string) int {
	t.Helper()
	var textbook models.Textbook
	require.NoError(t, db.Where("id = ?", textbookID).First(&textbook).Error)
	return textbook.StockQuantity
}

func cartSize(t *testing.T, db *gorm.DB, identityID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("identity_id = ?", identityID).Count(&count).Error)
	return count
}

func orderCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	return count
}
