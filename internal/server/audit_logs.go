package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	"github.com/dealerdesk/platform/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken    string `form:"page_token"`
	PageSize     int    `form:"page_size"`
	Action       string `form:"action"`
	TargetUserID string `form:"target_user_id"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.governanceSvc.ListAuditLogs(c.Request.Context(), governancedomain.ListAuditLogsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:       strings.TrimSpace(query.Action),
		TargetUserID: strings.TrimSpace(query.TargetUserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
