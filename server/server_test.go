package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/textbookhub/pkg/auth"
	"github.com/example/textbookhub/pkg/config"
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (b *memoryBlacklist) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (b *memoryBlacklist) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.revoked[jti]
	return ok && time.Now().Before(expiry), nil
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.School{}, &models.SchoolAuth{}, &models.User{},
		&models.Category{}, &models.Textbook{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))

	logger := zap.NewNop()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			Issuer:    "textbookhub-test",
			AccessTTL: time.Hour,
		},
	}
	tokens := auth.NewManager(&cfg.JWT, &memoryBlacklist{revoked: map[string]time.Time{}})

	catalog := service.NewCatalogService(db, logger)
	services := Services{
		Users:    service.NewUserService(db, logger),
		Schools:  service.NewSchoolService(db, logger),
		Catalog:  catalog,
		Carts:    service.NewCartService(db, logger),
		Checkout: service.NewCheckoutService(db, logger, nil, nil),
		Orders:   service.NewOrderService(db, logger, nil, nil),
		Reports:  service.NewReportService(db, logger, catalog),
	}

	srv := New(cfg, logger, tokens, services)
	srv.SetupRoutes()
	return &testEnv{router: srv.Router(), db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func (e *testEnv) seedSchool(t *testing.T, name string) *models.School {
	t.Helper()
	school := &models.School{
		ID: uuid.NewString(), Name: name, Prefecture: "Tokyo", City: "Chiyoda", IsActive: true,
	}
	require.NoError(t, e.db.Create(school).Error)
	return school
}

func (e *testEnv) seedTextbook(t *testing.T, title string, price float64, stock int) *models.Textbook {
	t.Helper()
	category := &models.Category{ID: uuid.NewString(), Name: "cat-" + title, IsActive: true}
	require.NoError(t, e.db.Create(category).Error)
	textbook := &models.Textbook{
		ID: uuid.NewString(), CategoryID: category.ID, Title: title,
		Price: price, StockQuantity: stock, IsActive: true,
	}
	require.NoError(t, e.db.Create(textbook).Error)
	return textbook
}

// registerAndLogin runs the real registration and login endpoints and
// returns an access token.
func (e *testEnv) registerAndLogin(t *testing.T, schoolID, username, email string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"school_id": schoolID,
		"username":  username,
		"email":     email,
		"password":  "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cart", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	school := env.seedSchool(t, "Minato High")
	textbook := env.seedTextbook(t, "Algebra I", 100, 10)

	token := env.registerAndLogin(t, school.ID, "taro", "taro@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/cart", token, gin.H{
		"textbook_id": textbook.ID,
		"quantity":    3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart struct {
		TotalAmount float64 `json:"total_amount"`
		TotalItems  int     `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &cart))
	assert.Equal(t, 300.0, cart.TotalAmount)
	assert.Equal(t, 3, cart.TotalItems)

	rec = env.do(t, http.MethodPost, "/api/v1/orders", token, gin.H{
		"shipping_address": "1-1 Nagatacho",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &placed))
	assert.Equal(t, 300.0, placed.Order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, placed.Order.Status)

	// The cart is empty after checkout.
	rec = env.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &cart))
	assert.Zero(t, cart.TotalItems)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Orders []models.Order `json:"orders"`
		Total  int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &page))
	assert.Equal(t, int64(1), page.Total)

	rec = env.do(t, http.MethodPost, "/api/v1/orders/"+placed.Order.ID+"/cancel", token, gin.H{
		"reason": "ordered twice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCheckoutEmptyCartOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	school := env.seedSchool(t, "Minato High")
	token := env.registerAndLogin(t, school.ID, "taro", "taro@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EMPTY_CART", resp.Error.Code)
}

func TestInsufficientStockEnvelope(t *testing.T) {
	env := newTestEnv(t)
	school := env.seedSchool(t, "Minato High")
	textbook := env.seedTextbook(t, "Rare Atlas", 50, 2)
	token := env.registerAndLogin(t, school.ID, "taro", "taro@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/cart", token, gin.H{
		"textbook_id": textbook.ID,
		"quantity":    5,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Rare Atlas")
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	env := newTestEnv(t)
	school := env.seedSchool(t, "Minato High")
	token := env.registerAndLogin(t, school.ID, "taro", "taro@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/admin/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ACCESS_DENIED", resp.Error.Code)
}

func TestAdminDashboardAndReports(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool(t, "Minato High")
	env.seedTextbook(t, "Algebra I", 100, 10)

	adminToken, err := env.tokens.Issue(uuid.NewString(), "", models.RoleAdmin)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/admin/reports/sales", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/reports/sales/export", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "textbook_id,title,total_quantity,total_revenue")
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	school := env.seedSchool(t, "Minato High")
	token := env.registerAndLogin(t, school.ID, "taro", "taro@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSchoolLoginOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	adminToken, err := env.tokens.Issue(uuid.NewString(), "", models.RoleAdmin)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/admin/schools", adminToken, gin.H{
		"name":       "Sakura High",
		"prefecture": "Osaka",
		"city":       "Sakai",
		"login_id":   "sakura01",
		"password":   "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/schools/login", "", gin.H{
		"login_id": "sakura01",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))

	rec = env.do(t, http.MethodGet, "/api/v1/schools/me", data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
