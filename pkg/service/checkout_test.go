package service

import (
	"context"
	"testing"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	textbook := seedCatalog(t, db, "Algebra I", 100, 10)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	identityID := uuid.NewString()
	_, err := carts.Add(ctx, identityID, textbook.ID, 3)
	require.NoError(t, err)

	order, err := checkout.PlaceOrder(ctx, identityID, school.ID, PlaceOrderInput{
		ShippingAddress: "1-1 Nagatacho",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 300.0, order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Algebra I", order.Items[0].Title)
	assert.Equal(t, 100.0, order.Items[0].UnitPrice)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 300.0, order.Items[0].TotalPrice)

	assert.Equal(t, 7, currentStock(t, db, textbook.ID))
	assert.Zero(t, cartSize(t, db, identityID))

	// The order is durable, not just in memory.
	var stored models.Order
	require.NoError(t, db.Preload("Items").Where("id = ?", order.ID).First(&stored).Error)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)
	require.Len(t, stored.Items, 1)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")

	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	_, err := checkout.PlaceOrder(ctx, uuid.NewString(), school.ID, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeEmptyCart))
	assert.Zero(t, orderCount(t, db))
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	scarce := seedCatalog(t, db, "Rare Atlas", 50, 2)
	plenty := seedCatalog(t, db, "Common Reader", 10, 100)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	identityID := uuid.NewString()
	_, err := carts.Add(ctx, identityID, plenty.ID, 1)
	require.NoError(t, err)
	// Seed the shortfall directly; Add would refuse quantity above stock.
	require.NoError(t, db.Create(&models.CartItem{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		TextbookID: scarce.ID,
		Quantity:   5,
	}).Error)

	_, err = checkout.PlaceOrder(ctx, identityID, school.ID, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	// All or nothing: no order, no stock movement, cart untouched.
	assert.Zero(t, orderCount(t, db))
	assert.Equal(t, 2, currentStock(t, db, scarce.ID))
	assert.Equal(t, 100, currentStock(t, db, plenty.ID))
	assert.Equal(t, int64(2), cartSize(t, db, identityID))
}

func TestPlaceOrderInactiveTextbook(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	textbook := seedCatalog(t, db, "Withdrawn Title", 30, 10)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	identityID := uuid.NewString()
	_, err := carts.Add(ctx, identityID, textbook.ID, 1)
	require.NoError(t, err)

	// The catalog withdraws the textbook between add and checkout.
	require.NoError(t, db.Model(&models.Textbook{}).Where("id = ?", textbook.ID).
		Update("is_active", false).Error)

	_, err = checkout.PlaceOrder(ctx, identityID, school.ID, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeTextbookNotFound))
	assert.Zero(t, orderCount(t, db))
	assert.Equal(t, int64(1), cartSize(t, db, identityID))
}

func TestPlaceOrderDepletesStockExactlyOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	textbook := seedCatalog(t, db, "Last Copy", 80, 1)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	first := uuid.NewString()
	second := uuid.NewString()

	_, err := carts.Add(ctx, first, textbook.ID, 1)
	require.NoError(t, err)
	_, err = carts.Add(ctx, second, textbook.ID, 1)
	require.NoError(t, err)

	_, err = checkout.PlaceOrder(ctx, first, school.ID, PlaceOrderInput{})
	require.NoError(t, err)

	_, err = checkout.PlaceOrder(ctx, second, school.ID, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInsufficientStock))

	// Exactly one order exists and stock never went negative.
	assert.Equal(t, int64(1), orderCount(t, db))
	assert.Equal(t, 0, currentStock(t, db, textbook.ID))
}

func TestPlaceOrderFreezesPrices(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	textbook := seedCatalog(t, db, "Chemistry II", 120, 10)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	identityID := uuid.NewString()
	_, err := carts.Add(ctx, identityID, textbook.ID, 2)
	require.NoError(t, err)

	order, err := checkout.PlaceOrder(ctx, identityID, school.ID, PlaceOrderInput{})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Textbook{}).Where("id = ?", textbook.ID).
		Update("price", 999.0).Error)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 120.0, items[0].UnitPrice)
	assert.Equal(t, 240.0, items[0].TotalPrice)
}

func TestPlaceOrderMultipleLines(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	school := seedSchool(t, db, "Minato High")
	category := seedCategory(t, db, "Science")
	physics := seedTextbook(t, db, category.ID, "Physics", 150, 5)
	biology := seedTextbook(t, db, category.ID, "Biology", 90, 8)

	carts := NewCartService(db, testLogger())
	checkout := NewCheckoutService(db, testLogger(), nil, nil)

	identityID := uuid.NewString()
	_, err := carts.Add(ctx, identityID, physics.ID, 2)
	require.NoError(t, err)
	_, err = carts.Add(ctx, identityID, biology.ID, 3)
	require.NoError(t, err)

	order, err := checkout.PlaceOrder(ctx, identityID, school.ID, PlaceOrderInput{})
	require.NoError(t, err)

	assert.Equal(t, 150.0*2+90.0*3, order.TotalAmount)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 3, currentStock(t, db, physics.ID))
	assert.Equal(t, 5, currentStock(t, db, biology.ID))
}
