package server

import (
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
)

type placeOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, "invalid order payload")
			return
		}
	}

	claims := currentClaims(c)
	order, err := s.services.Checkout.PlaceOrder(c.Request.Context(), claims.IdentityID, claims.SchoolID, service.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"order": order})
}

func (s *Server) listOrders(c *gin.Context) {
	claims := currentClaims(c)

	page, err := s.services.Orders.List(c.Request.Context(), service.OrderFilter{
		IdentityID: claims.IdentityID,
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

func (s *Server) getOrder(c *gin.Context) {
	claims := currentClaims(c)

	order, err := s.services.Orders.Get(c.Request.Context(), c.Param("id"), claims.IdentityID, claims.Role == models.RoleAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order": order})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, "invalid cancel payload")
			return
		}
	}

	claims := currentClaims(c)
	order, err := s.services.Orders.Cancel(c.Request.Context(), c.Param("id"), claims.IdentityID, claims.Role == models.RoleAdmin, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order": order})
}
