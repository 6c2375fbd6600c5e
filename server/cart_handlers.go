package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) getCart(c *gin.Context) {
	claims := currentClaims(c)

	view, err := s.services.Carts.Get(c.Request.Context(), claims.IdentityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

type addToCartRequest struct {
	TextbookID string `json:"textbook_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
}

func (s *Server) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "textbook_id and quantity are required")
		return
	}

	claims := currentClaims(c)
	item, err := s.services.Carts.Add(c.Request.Context(), claims.IdentityID, req.TextbookID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"cart_item": item})
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) updateCartItem(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid cart payload")
		return
	}

	claims := currentClaims(c)
	item, err := s.services.Carts.UpdateQuantity(c.Request.Context(), claims.IdentityID, c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	if item == nil {
		respondOK(c, gin.H{"message": "item removed from cart"})
		return
	}
	respondOK(c, gin.H{"cart_item": item})
}

func (s *Server) removeCartItem(c *gin.Context) {
	claims := currentClaims(c)
	if err := s.services.Carts.Remove(c.Request.Context(), claims.IdentityID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "item removed from cart"})
}

func (s *Server) clearCart(c *gin.Context) {
	claims := currentClaims(c)
	if err := s.services.Carts.Clear(c.Request.Context(), claims.IdentityID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "cart cleared"})
}
