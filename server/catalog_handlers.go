package server

import (
	"strconv"

	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func boolQuery(c *gin.Context, name string, fallback bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (s *Server) listTextbooks(c *gin.Context) {
	page, err := s.services.Catalog.List(c.Request.Context(), service.TextbookFilter{
		CategoryID:  c.Query("category_id"),
		SchoolID:    c.Query("school_id"),
		GradeLevel:  c.Query("grade_level"),
		Subject:     c.Query("subject"),
		InStockOnly: boolQuery(c, "in_stock_only", true),
		Page:        intQuery(c, "page", 1),
		PerPage:     intQuery(c, "per_page", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}

func (s *Server) getTextbook(c *gin.Context) {
	textbook, err := s.services.Catalog.Get(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"textbook": textbook})
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.services.Catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"categories": categories, "total": len(categories)})
}
