package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckoutService converts a cart into a persisted order while decrementing
// stock, all inside one database transaction. Nothing is observable from a
// failed checkout: no order, no stock change, no cart mutation.
type CheckoutService struct {
	db     *gorm.DB
	logger *zap.Logger
	audit  *repository.MongoRepository
	cache  *repository.RedisRepository
}

func NewCheckoutService(db *gorm.DB, logger *zap.Logger, audit *repository.MongoRepository, cache *repository.RedisRepository) *CheckoutService {
	return &CheckoutService{db: db, logger: logger, audit: audit, cache: cache}
}

type PlaceOrderInput struct {
	ShippingAddress string
	Notes           string
}

// PlaceOrder executes the checkout unit of work:
//
//  1. load the identity's cart lines; empty cart aborts,
//  2. re-read each textbook inside the transaction and check stock,
//  3. snapshot unit prices and accumulate the order total,
//  4. create the order with its items,
//  5. decrement stock with a guarded update that re-checks availability,
//  6. clear the cart.
//
// A failed stock guard in step 5 means a concurrent checkout depleted the
// textbook after our read in step 2; the whole transaction rolls back.
func (s *CheckoutService) PlaceOrder(ctx context.Context, identityID, schoolID string, input PlaceOrderInput) (*models.Order, error) {
	var order *models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cartItems []models.CartItem
		if err := tx.Where("identity_id = ?", identityID).Order("created_at").Find(&cartItems).Error; err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return apperr.New(apperr.CodeEmptyCart, "cart is empty")
		}

		now := time.Now()
		order = &models.Order{
			ID:              uuid.NewString(),
			IdentityID:      identityID,
			SchoolID:        schoolID,
			Status:          models.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			Notes:           input.Notes,
			PaymentStatus:   "pending",
			OrderedAt:       now,
		}

		var total float64
		items := make([]models.OrderItem, 0, len(cartItems))
		for _, line := range cartItems {
			var textbook models.Textbook
			if err := tx.Where("id = ?", line.TextbookID).First(&textbook).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.Newf(apperr.CodeTextbookNotFound, "textbook %s no longer exists", line.TextbookID)
				}
				return err
			}
			if !textbook.IsActive {
				return apperr.Newf(apperr.CodeTextbookNotFound, "textbook %q is no longer available", textbook.Title)
			}
			if !textbook.InStock(line.Quantity) {
				return apperr.Newf(apperr.CodeInsufficientStock,
					"insufficient stock for %q: requested %d, available %d",
					textbook.Title, line.Quantity, textbook.StockQuantity)
			}

			lineTotal := textbook.Price * float64(line.Quantity)
			items = append(items, models.OrderItem{
				ID:         uuid.NewString(),
				OrderID:    order.ID,
				TextbookID: textbook.ID,
				Title:      textbook.Title,
				Quantity:   line.Quantity,
				UnitPrice:  textbook.Price,
				TotalPrice: lineTotal,
			})
			total += lineTotal
		}
		order.TotalAmount = total
		order.Items = items

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for _, item := range items {
			// Guarded decrement: the WHERE re-validates stock so a
			// concurrent checkout can never drive it negative.
			res := tx.Model(&models.Textbook{}).
				Where("id = ? AND stock_quantity >= ?", item.TextbookID, item.Quantity).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Newf(apperr.CodeInsufficientStock,
					"insufficient stock for %q: depleted by a concurrent order", item.Title)
			}
		}

		return tx.Where("identity_id = ?", identityID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.logger.Error("Checkout transaction failed",
			zap.String("identity_id", identityID),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to place order", err)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("identity_id", identityID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("item_count", len(order.Items)))

	if s.cache != nil {
		s.cache.CacheOrder(ctx, &repository.OrderCache{
			ID:          order.ID,
			IdentityID:  order.IdentityID,
			TotalAmount: order.TotalAmount,
			Status:      string(order.Status),
		})
	}

	if s.audit != nil {
		go s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Action:     "place_order",
			EntityID:   order.ID,
			IdentityID: identityID,
			Data:       bson.M{"total_amount": order.TotalAmount, "item_count": len(order.Items)},
		})
	}

	return order, nil
}
