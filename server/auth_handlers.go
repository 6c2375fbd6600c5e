package server

import (
	"strings"

	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	SchoolID  string `json:"school_id" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Grade     string `json:"grade"`
	ClassName string `json:"class_name"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid registration payload")
		return
	}

	user, err := s.services.Users.Register(c.Request.Context(), service.RegisterInput{
		SchoolID:  req.SchoolID,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Grade:     req.Grade,
		ClassName: req.ClassName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "email and password are required")
		return
	}

	user, err := s.services.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.SchoolID, user.Role)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"access_token": token, "user": user})
}

func (s *Server) logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	if err := s.tokens.Revoke(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "logged out"})
}

func (s *Server) currentUser(c *gin.Context) {
	claims := currentClaims(c)
	if claims.Role == models.RoleSchool {
		school, err := s.services.Schools.Get(c.Request.Context(), claims.IdentityID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"school": school, "role": claims.Role})
		return
	}

	user, err := s.services.Users.Get(c.Request.Context(), claims.IdentityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "role": claims.Role})
}

type profileRequest struct {
	Username  *string `json:"username"`
	Grade     *string `json:"grade"`
	ClassName *string `json:"class_name"`
	SchoolID  *string `json:"school_id"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "invalid profile payload")
		return
	}

	claims := currentClaims(c)
	user, err := s.services.Users.UpdateProfile(c.Request.Context(), claims.IdentityID, service.ProfileUpdate{
		Username:  req.Username,
		Grade:     req.Grade,
		ClassName: req.ClassName,
		SchoolID:  req.SchoolID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"user": user})
}

type schoolLoginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) schoolLogin(c *gin.Context) {
	var req schoolLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "login_id and password are required")
		return
	}

	school, err := s.services.Schools.Authenticate(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := s.tokens.Issue(school.ID, school.ID, models.RoleSchool)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"access_token": token, "school": school})
}

func (s *Server) currentSchool(c *gin.Context) {
	claims := currentClaims(c)

	school, err := s.services.Schools.Get(c.Request.Context(), claims.SchoolID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"school": school})
}

func (s *Server) listActiveSchools(c *gin.Context) {
	page, err := s.services.Schools.List(c.Request.Context(), service.SchoolFilter{
		ActiveOnly: true,
		Page:       intQuery(c, "page", 1),
		PerPage:    intQuery(c, "per_page", 50),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, page)
}
