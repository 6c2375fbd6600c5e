package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReportService struct {
	db      *gorm.DB
	logger  *zap.Logger
	catalog *CatalogService
}

func NewReportService(db *gorm.DB, logger *zap.Logger, catalog *CatalogService) *ReportService {
	return &ReportService{db: db, logger: logger, catalog: catalog}
}

// TextbookSales aggregates committed order lines, so revenue reflects the
// frozen prices captured at purchase time. Cancelled orders are excluded.
type TextbookSales struct {
	TextbookID    string  `json:"textbook_id"`
	Title         string  `json:"title"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

type SalesSummary struct {
	TotalSales float64         `json:"total_sales"`
	Textbooks  []TextbookSales `json:"textbooks"`
}

func (s *ReportService) Sales(ctx context.Context) (*SalesSummary, error) {
	summary := &SalesSummary{}

	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&summary.TotalSales).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to sum sales", err)
	}

	err = s.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("order_items.textbook_id AS textbook_id, order_items.title AS title, SUM(order_items.quantity) AS total_quantity, SUM(order_items.total_price) AS total_revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", models.OrderStatusCancelled).
		Group("order_items.textbook_id, order_items.title").
		Order("total_revenue DESC").
		Scan(&summary.Textbooks).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to aggregate sales", err)
	}

	return summary, nil
}

type InventoryLine struct {
	TextbookID    string `json:"textbook_id"`
	Title         string `json:"title"`
	StockQuantity int    `json:"stock_quantity"`
}

func (s *ReportService) Inventory(ctx context.Context) ([]InventoryLine, error) {
	var lines []InventoryLine
	err := s.db.WithContext(ctx).Model(&models.Textbook{}).
		Select("id AS textbook_id, title, stock_quantity").
		Where("is_active = ?", true).
		Order("title").
		Scan(&lines).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to build inventory report", err)
	}
	return lines, nil
}

// ExportSalesCSV streams the sales aggregation as CSV.
func (s *ReportService) ExportSalesCSV(ctx context.Context, w io.Writer) error {
	summary, err := s.Sales(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"textbook_id", "title", "total_quantity", "total_revenue"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range summary.Textbooks {
		record := []string{
			row.TextbookID,
			row.Title,
			fmt.Sprintf("%d", row.TotalQuantity),
			fmt.Sprintf("%.2f", row.TotalRevenue),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const lowStockThreshold = 5

type DashboardStats struct {
	TotalSchools   int64 `json:"total_schools"`
	TotalStudents  int64 `json:"total_students"`
	TotalTextbooks int64 `json:"total_textbooks"`
	TotalOrders    int64 `json:"total_orders"`
	PendingOrders  int64 `json:"pending_orders"`
}

type Dashboard struct {
	Stats           DashboardStats    `json:"stats"`
	LowStockItems   []models.Textbook `json:"low_stock_items"`
	OutOfStockItems []models.Textbook `json:"out_of_stock_items"`
	RecentOrders    []models.Order    `json:"recent_orders"`
}

func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	dash := &Dashboard{}
	db := s.db.WithContext(ctx)

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&dash.Stats.TotalSchools, db.Model(&models.School{}).Where("is_active = ?", true)},
		{&dash.Stats.TotalStudents, db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleStudent, true)},
		{&dash.Stats.TotalTextbooks, db.Model(&models.Textbook{}).Where("is_active = ?", true)},
		{&dash.Stats.TotalOrders, db.Model(&models.Order{})},
		{&dash.Stats.PendingOrders, db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, apperr.Wrap(apperr.CodePersistence, "failed to collect dashboard stats", err)
		}
	}

	low, err := s.catalog.LowStock(ctx, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	dash.LowStockItems = low

	out, err := s.catalog.OutOfStock(ctx)
	if err != nil {
		return nil, err
	}
	dash.OutOfStockItems = out

	err = db.Preload("Items").Order("ordered_at DESC").Limit(5).Find(&dash.RecentOrders).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load recent orders", err)
	}

	return dash, nil
}
