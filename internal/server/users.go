package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	"github.com/dealerdesk/platform/internal/principal"
)

func (s *Server) Me(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      p.UserID.String(),
		"email":        p.Email,
		"role":         p.Role,
		"company_id":   p.CompanyID.String(),
		"company_type": p.CompanyType,
		"status":       p.Status,
	})
}

type issueTokenRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IssueToken exchanges a user id or email for a bearer token. The route is
// only registered outside production.
func (s *Server) IssueToken(c *gin.Context) {
	var body issueTokenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var token string
	var err error
	switch {
	case strings.TrimSpace(body.Email) != "":
		token, err = s.identitySvc.IssueTokenByEmail(c.Request.Context(), body.Email)
	case strings.TrimSpace(body.UserID) != "":
		var userID snowflake.ID
		userID, err = snowflake.ParseString(strings.TrimSpace(body.UserID))
		if err != nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
			return
		}
		token, err = s.identitySvc.IssueToken(c.Request.Context(), userID)
	default:
		AbortWithError(c, newValidationError("user_id", "missing_subject", "user_id or email is required"))
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type updateUserRequest struct {
	Role   string `json:"role" binding:"required"`
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) UpdateUser(c *gin.Context) {
	var body updateUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.governanceSvc.UpdateUserRoleAndStatus(c.Request.Context(), c.Param("id"), governancedomain.UpdateUserRequest{
		Role:   body.Role,
		Status: body.Status,
		Reason: body.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type removeUserRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RemoveUser(c *gin.Context) {
	var body removeUserRequest
	// The body is optional; a missing reason is fine.
	_ = c.ShouldBindJSON(&body)

	if err := s.governanceSvc.RemoveUser(c.Request.Context(), c.Param("id"), body.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
