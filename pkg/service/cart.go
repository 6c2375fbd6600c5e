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

type CartService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCartService(db *gorm.DB, logger *zap.Logger) *CartService {
	return &CartService{db: db, logger: logger}
}

// CartLine is a cart item enriched with its textbook snapshot for display.
// LineTotal uses the current catalog price, not a frozen one; prices only
// freeze at checkout.
type CartLine struct {
	models.CartItem
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type CartView struct {
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
}

// Add validates the textbook and upserts the (identity, textbook) line,
// incrementing quantity when the line already exists. The stock check here
// is advisory; checkout re-validates inside its transaction.
func (s *CartService) Add(ctx context.Context, identityID, textbookID string, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be positive")
	}

	var textbook models.Textbook
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", textbookID, true).First(&textbook).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeTextbookNotFound, "textbook not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load textbook", err)
	}
	if !textbook.InStock(quantity) {
		return nil, apperr.Newf(apperr.CodeInsufficientStock,
			"insufficient stock for %q: requested %d, available %d",
			textbook.Title, quantity, textbook.StockQuantity)
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("identity_id = ? AND textbook_id = ?", identityID, textbookID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += quantity
			return tx.Model(&item).Update("quantity", item.Quantity).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				ID:         uuid.NewString(),
				IdentityID: identityID,
				TextbookID: textbookID,
				Quantity:   quantity,
			}
			return tx.Create(&item).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to add to cart", err)
	}

	return &item, nil
}

// UpdateQuantity sets the line's quantity; a non-positive quantity removes
// the line.
func (s *CartService) UpdateQuantity(ctx context.Context, identityID, cartItemID string, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.db.WithContext(ctx).Where("id = ? AND identity_id = ?", cartItemID, identityID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeCartItemNotFound, "cart item not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load cart item", err)
	}

	if quantity <= 0 {
		if err := s.db.WithContext(ctx).Delete(&item).Error; err != nil {
			return nil, apperr.Wrap(apperr.CodePersistence, "failed to remove cart item", err)
		}
		return nil, nil
	}

	item.Quantity = quantity
	if err := s.db.WithContext(ctx).Model(&item).Update("quantity", quantity).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to update cart item", err)
	}
	return &item, nil
}

// Remove deletes a line; removing an absent line is a no-op.
func (s *CartService) Remove(ctx context.Context, identityID, cartItemID string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND identity_id = ?", cartItemID, identityID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to remove cart item", err)
	}
	return nil
}

// Clear empties the identity's cart; clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, identityID string) error {
	err := s.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "failed to clear cart", err)
	}
	return nil
}

// Get returns the cart lines in insertion order with live totals.
func (s *CartService) Get(ctx context.Context, identityID string) (*CartView, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).Order("created_at").Find(&items).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load cart", err)
	}

	view := &CartView{Items: make([]CartLine, 0, len(items))}
	for _, item := range items {
		var textbook models.Textbook
		if err := s.db.WithContext(ctx).Where("id = ?", item.TextbookID).First(&textbook).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Stale line for a removed textbook; skip it for display.
				continue
			}
			return nil, apperr.Wrap(apperr.CodePersistence, "failed to load textbook", err)
		}
		line := CartLine{
			CartItem:  item,
			Title:     textbook.Title,
			UnitPrice: textbook.Price,
			LineTotal: textbook.Price * float64(item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.TotalAmount += line.LineTotal
		view.TotalItems += item.Quantity
	}
	return view, nil
}
