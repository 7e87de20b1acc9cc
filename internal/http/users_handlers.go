package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/domain"
	"legaldesk/internal/policy"
)

type changeRoleReq struct {
	Role string `json:"role"`
}

// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 403 {object} errorResponse
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	users, err := s.svc.Users.List(c, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// @Summary Create user
// @Description Admin only; the role may be admin or client.
// @Tags users
// @Accept json
// @Produce json
// @Param input body registerReq true "Account"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /users [post]
func (s *Server) createUser(c *gin.Context) {
	if !s.allowed(c, policy.CanManageUsers) {
		return
	}
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	u, err := s.svc.Users.CreateByAdmin(c, identity(c), req.input())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "message": "User created successfully"})
}

// @Summary Change user role
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param input body changeRoleReq true "Role"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /users/{id}/role [put]
func (s *Server) changeRole(c *gin.Context) {
	if !s.allowed(c, policy.CanManageUsers) {
		return
	}
	var req changeRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	u, err := s.svc.Users.ChangeRole(c, identity(c), c.Param("id"), req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "message": "User role updated successfully"})
}

// @Summary Delete user
// @Description The user's orders are deleted with the account.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /users/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	if err := s.svc.Users.Delete(c, identity(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
