package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/auth"
	"legaldesk/internal/service"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r registerReq) input() service.RegisterInput {
	return service.RegisterInput{Name: r.Name, Email: r.Email, Password: r.Password, Role: r.Role}
}

type loginReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (s *Server) setSessionCookie(c *gin.Context, token string, rememberMe bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(auth.TTL(rememberMe).Seconds()), "/", "", s.secure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.secure, true)
}

// @Summary Register
// @Description Self-registration always creates a client and starts a session.
// @Description An admin caller may choose the role; no session cookie is set then.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerReq true "Account"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	requester := identity(c)
	u, err := s.svc.Users.Register(c, requester, req.input())
	if err != nil {
		s.fail(c, err)
		return
	}
	if requester.IsAdmin() {
		c.JSON(http.StatusOK, gin.H{"user": u, "message": "User created successfully"})
		return
	}
	token, err := s.svc.Auth.Session(u, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token, false)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginReq true "Credentials"
// @Success 200 {object} map[string]domain.User
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Router /auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	u, token, err := s.svc.Auth.Login(c, req.Email, req.Password, req.RememberMe)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token, req.RememberMe)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]domain.User
// @Failure 401 {object} errorResponse
// @Router /auth/me [get]
func (s *Server) me(c *gin.Context) {
	u, err := s.svc.Auth.Me(c, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// @Summary Analytics summary
// @Tags analytics
// @Produce json
// @Success 200 {object} domain.Analytics
// @Failure 403 {object} errorResponse
// @Router /analytics [get]
func (s *Server) analytics(c *gin.Context) {
	a, err := s.svc.Analytics.Summary(c, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
