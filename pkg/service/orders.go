package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService struct {
	db     *gorm.DB
	logger *zap.Logger
	audit  *repository.MongoRepository
	cache  *repository.RedisRepository
}

func NewOrderService(db *gorm.DB, logger *zap.Logger, audit *repository.MongoRepository, cache *repository.RedisRepository) *OrderService {
	return &OrderService{db: db, logger: logger, audit: audit, cache: cache}
}

type OrderFilter struct {
	IdentityID string
	SchoolID   string
	Status     models.OrderStatus
	Page       int
	PerPage    int
}

type OrderPage struct {
	Orders  []models.Order `json:"orders"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

func (s *OrderService) List(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 100 {
		filter.PerPage = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.IdentityID != "" {
		query = query.Where("identity_id = ?", filter.IdentityID)
	}
	if filter.SchoolID != "" {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperr.Newf(apperr.CodeValidation, "unknown order status %q", filter.Status)
		}
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to count orders", err)
	}

	var orders []models.Order
	offset := (filter.Page - 1) * filter.PerPage
	err := query.Preload("Items").
		Order("ordered_at DESC").
		Offset(offset).Limit(filter.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to list orders", err)
	}

	return &OrderPage{Orders: orders, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

// Get returns the order with its items. Callers that are neither the owner
// nor an admin get ACCESS_DENIED rather than a not-found leak.
func (s *OrderService) Get(ctx context.Context, orderID, requesterID string, requesterIsAdmin bool) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeOrderNotFound, "order not found")
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load order", err)
	}

	if !requesterIsAdmin && order.IdentityID != requesterID {
		return nil, apperr.New(apperr.CodeAccessDenied, "access denied")
	}
	return &order, nil
}

// Cancel moves the order to cancelled if its current status allows it.
// Cancellation does not restock inventory.
func (s *OrderService) Cancel(ctx context.Context, orderID, requesterID string, requesterIsAdmin bool, reason string) (*models.Order, error) {
	order, err := s.transition(ctx, orderID, requesterID, requesterIsAdmin, models.OrderStatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		go s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Action:     "cancel_order",
			EntityID:   order.ID,
			IdentityID: requesterID,
			Data:       bson.M{"reason": reason},
		})
	}
	return order, nil
}

// UpdateStatus is the administrative transition (processing, shipped,
// completed, cancelled); the same state machine applies.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, adminID string, next models.OrderStatus, notes string) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown order status %q", next)
	}
	order, err := s.transition(ctx, orderID, adminID, true, next, notes)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		go s.audit.CreateAuditLog(context.Background(), &repository.AuditLog{
			Action:     "update_order_status",
			EntityID:   order.ID,
			IdentityID: adminID,
			Data:       bson.M{"status": string(next)},
		})
	}
	return order, nil
}

// AuditTrail returns the recorded audit events for an order, newest first.
// Without an audit store configured the trail is empty, not an error.
func (s *OrderService) AuditTrail(ctx context.Context, orderID string, limit int64) ([]*repository.AuditLog, error) {
	if s.audit == nil {
		return []*repository.AuditLog{}, nil
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	logs, err := s.audit.GetAuditLogs(ctx, orderID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to load audit trail", err)
	}
	return logs, nil
}

func (s *OrderService) transition(ctx context.Context, orderID, requesterID string, requesterIsAdmin bool, next models.OrderStatus, reason string) (*models.Order, error) {
	var order models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeOrderNotFound, "order not found")
			}
			return err
		}
		if !requesterIsAdmin && order.IdentityID != requesterID {
			return apperr.New(apperr.CodeAccessDenied, "access denied")
		}
		if !order.Status.CanTransitionTo(next) {
			return apperr.Newf(apperr.CodeInvalidTransition,
				"cannot transition order from %s to %s", order.Status, next)
		}

		updates := map[string]interface{}{
			"status":     next,
			"updated_at": time.Now(),
		}
		if next == models.OrderStatusCancelled && reason != "" {
			updates["cancel_reason"] = reason
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		order.Status = next
		if next == models.OrderStatusCancelled {
			order.CancelReason = reason
		}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to update order", err)
	}

	if s.cache != nil {
		s.cache.InvalidateOrder(ctx, orderID)
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("status", string(next)))

	return &order, nil
}
