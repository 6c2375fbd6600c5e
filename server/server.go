package server

import (
	"fmt"
	"net/http"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/auth"
	"github.com/example/textbookhub/pkg/config"
	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services groups the collaborators the HTTP surface dispatches into.
type Services struct {
	Users    *service.UserService
	Schools  *service.SchoolService
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Reports  *service.ReportService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	tokens   *auth.Manager
	services Services
}

func New(cfg *config.Config, logger *zap.Logger, tokens *auth.Manager, services Services) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		tokens:   tokens,
		services: services,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", s.rateLimit(), s.register)
			authGroup.POST("/login", s.rateLimit(), s.login)
			authGroup.POST("/logout", s.authRequired(), s.logout)
			authGroup.GET("/me", s.authRequired(), s.currentUser)
			authGroup.PUT("/profile", s.authRequired(), s.updateProfile)
		}

		schools := v1.Group("/schools")
		{
			schools.GET("", s.listActiveSchools)
			schools.POST("/login", s.rateLimit(), s.schoolLogin)
			schools.GET("/me", s.authRequired(), s.currentSchool)
		}

		textbooks := v1.Group("/textbooks", s.authRequired())
		{
			textbooks.GET("", s.listTextbooks)
			textbooks.GET("/:id", s.getTextbook)
		}
		v1.GET("/categories", s.authRequired(), s.listCategories)

		cart := v1.Group("/cart", s.authRequired())
		{
			cart.GET("", s.getCart)
			cart.POST("", s.addToCart)
			cart.PUT("/:id", s.updateCartItem)
			cart.DELETE("/:id", s.removeCartItem)
			cart.DELETE("", s.clearCart)
		}

		orders := v1.Group("/orders", s.authRequired())
		{
			orders.POST("", s.placeOrder)
			orders.GET("", s.listOrders)
			orders.GET("/:id", s.getOrder)
			orders.POST("/:id/cancel", s.cancelOrder)
		}

		admin := v1.Group("/admin", s.authRequired(), s.adminRequired())
		{
			admin.GET("/schools", s.adminListSchools)
			admin.POST("/schools", s.adminCreateSchool)
			admin.GET("/schools/:id", s.adminGetSchool)
			admin.PUT("/schools/:id", s.adminUpdateSchool)
			admin.DELETE("/schools/:id", s.adminDeactivateSchool)

			admin.GET("/students", s.adminListStudents)

			admin.GET("/textbooks", s.adminListTextbooks)
			admin.POST("/textbooks", s.adminCreateTextbook)
			admin.PUT("/textbooks/:id", s.adminUpdateTextbook)
			admin.DELETE("/textbooks/:id", s.adminDeactivateTextbook)

			admin.GET("/categories", s.adminListCategories)
			admin.POST("/categories", s.adminCreateCategory)

			admin.GET("/orders", s.adminListOrders)
			admin.GET("/orders/:id", s.adminGetOrder)
			admin.PUT("/orders/:id/status", s.adminUpdateOrderStatus)
			admin.GET("/orders/:id/audit", s.adminOrderAudit)

			admin.GET("/dashboard", s.adminDashboard)
			admin.GET("/reports/sales", s.adminSalesReport)
			admin.GET("/reports/inventory", s.adminInventoryReport)
			admin.GET("/reports/sales/export", s.adminExportSalesCSV)
		}
	}

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("HTTP server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// respondError translates any error into the stable envelope; internal
// detail never leaves the process.
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.JSON(appErr.HTTPStatus(), gin.H{"success": false, "error": appErr})
}

func respondValidationError(c *gin.Context, message string) {
	respondError(c, apperr.New(apperr.CodeValidation, message))
}
