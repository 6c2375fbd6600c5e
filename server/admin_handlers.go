package server

import (
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ==================== schools ====================

func (s *Server) adminListSchools(c *gin.Context) {
	page, err := s.services.Schools.List(c.Request.Context(), service.SchoolFilter{
		Search:     c.Query("search"),
		Prefecture: c.Query("prefecture"),
		Page:       intQuery(c, "page", 1),
		PerPage:    intQuery(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

type createSchoolRequest struct {
	Name       string `json:"name" binding:"required"`
	Prefecture string `json:"prefecture" binding:"required"`
	City       string `json:"city" binding:"required"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	LoginID    string `json:"login_id" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (s *Server) adminCreateSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid school payload")
		return
	}

	school, err := s.services.Schools.Create(c.Request.Context(), service.SchoolInput{
		Name:       req.Name,
		Prefecture: req.Prefecture,
		City:       req.City,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		LoginID:    req.LoginID,
		Password:   req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"school": school})
}

func (s *Server) adminGetSchool(c *gin.Context) {
	school, err := s.services.Schools.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"school": school})
}

type updateSchoolRequest struct {
	Name       *string `json:"name"`
	Prefecture *string `json:"prefecture"`
	City       *string `json:"city"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	IsActive   *bool   `json:"is_active"`
}

func (s *Server) adminUpdateSchool(c *gin.Context) {
	var req updateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid school payload")
		return
	}

	school, err := s.services.Schools.Update(c.Request.Context(), c.Param("id"), service.SchoolUpdate{
		Name:       req.Name,
		Prefecture: req.Prefecture,
		City:       req.City,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"school": school})
}

func (s *Server) adminDeactivateSchool(c *gin.Context) {
	if err := s.services.Schools.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "school deactivated"})
}

// ==================== students ====================

func (s *Server) adminListStudents(c *gin.Context) {
	page, err := s.services.Users.ListStudents(c.Request.Context(), service.StudentFilter{
		SchoolID: c.Query("school_id"),
		Grade:    c.Query("grade"),
		Page:     intQuery(c, "page", 1),
		PerPage:  intQuery(c, "per_page", 50),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

// ==================== textbooks ====================

func (s *Server) adminListTextbooks(c *gin.Context) {
	page, err := s.services.Catalog.List(c.Request.Context(), service.TextbookFilter{
		CategoryID:      c.Query("category_id"),
		SchoolID:        c.Query("school_id"),
		GradeLevel:      c.Query("grade_level"),
		Subject:         c.Query("subject"),
		InStockOnly:     boolQuery(c, "in_stock_only", false),
		IncludeInactive: true,
		Page:            intQuery(c, "page", 1),
		PerPage:         intQuery(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

type createTextbookRequest struct {
	CategoryID    string  `json:"category_id" binding:"required"`
	SchoolID      string  `json:"school_id"`
	Title         string  `json:"title" binding:"required"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	GradeLevel    string  `json:"grade_level"`
	Subject       string  `json:"subject"`
	ImageURL      string  `json:"image_url"`
}

func (s *Server) adminCreateTextbook(c *gin.Context) {
	var req createTextbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid textbook payload")
		return
	}

	textbook, err := s.services.Catalog.Create(c.Request.Context(), service.TextbookInput{
		CategoryID:    req.CategoryID,
		SchoolID:      req.SchoolID,
		Title:         req.Title,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		GradeLevel:    req.GradeLevel,
		Subject:       req.Subject,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"textbook": textbook})
}

type updateTextbookRequest struct {
	CategoryID    *string  `json:"category_id"`
	Title         *string  `json:"title"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
	GradeLevel    *string  `json:"grade_level"`
	Subject       *string  `json:"subject"`
	ImageURL      *string  `json:"image_url"`
	IsActive      *bool    `json:"is_active"`
}

func (s *Server) adminUpdateTextbook(c *gin.Context) {
	var req updateTextbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid textbook payload")
		return
	}

	textbook, err := s.services.Catalog.Update(c.Request.Context(), c.Param("id"), service.TextbookUpdate{
		CategoryID:    req.CategoryID,
		Title:         req.Title,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		GradeLevel:    req.GradeLevel,
		Subject:       req.Subject,
		ImageURL:      req.ImageURL,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"textbook": textbook})
}

func (s *Server) adminDeactivateTextbook(c *gin.Context) {
	if err := s.services.Catalog.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "textbook deactivated"})
}

// ==================== categories ====================

func (s *Server) adminListCategories(c *gin.Context) {
	categories, err := s.services.Catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"categories": categories, "total": len(categories)})
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) adminCreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "category name is required")
		return
	}

	category, err := s.services.Catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"category": category})
}

// ==================== orders ====================

func (s *Server) adminListOrders(c *gin.Context) {
	page, err := s.services.Orders.List(c.Request.Context(), service.OrderFilter{
		IdentityID: c.Query("identity_id"),
		SchoolID:   c.Query("school_id"),
		Status:     models.OrderStatus(c.Query("status")),
		Page:       intQuery(c, "page", 1),
		PerPage:    intQuery(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

func (s *Server) adminGetOrder(c *gin.Context) {
	claims := currentClaims(c)

	order, err := s.services.Orders.Get(c.Request.Context(), c.Param("id"), claims.IdentityID, true)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (s *Server) adminUpdateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "status is required")
		return
	}

	claims := currentClaims(c)
	order, err := s.services.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), claims.IdentityID, models.OrderStatus(req.Status), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

func (s *Server) adminOrderAudit(c *gin.Context) {
	logs, err := s.services.Orders.AuditTrail(c.Request.Context(), c.Param("id"), int64(intQuery(c, "limit", 50)))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"audit_logs": logs})
}

// ==================== reports ====================

func (s *Server) adminDashboard(c *gin.Context) {
	dashboard, err := s.services.Reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, dashboard)
}

func (s *Server) adminSalesReport(c *gin.Context) {
	summary, err := s.services.Reports.Sales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

func (s *Server) adminInventoryReport(c *gin.Context) {
	lines, err := s.services.Reports.Inventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"inventory": lines, "total": len(lines)})
}

func (s *Server) adminExportSalesCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=sales_report.csv")
	if err := s.services.Reports.ExportSalesCSV(c.Request.Context(), c.Writer); err != nil {
		s.logger.Error("Failed to export sales CSV", zap.Error(err))
	}
}
