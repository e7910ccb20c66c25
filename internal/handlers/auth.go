package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/auth"
	"studygroup/internal/middleware"
	"studygroup/internal/observability"
	"studygroup/internal/repositories"
	"studygroup/internal/telemetry"
)

const (
	msgInvalidLogin    = "Invalid username or password"
	msgDatabaseError   = "Database error, try again"
	msgSignupFailed    = "Signup failed"
	msgTooManyAttempts = "Too many attempts, try again later"
)

// SessionStore binds and clears the logged-in user of a browser.
type SessionStore interface {
	Login(w http.ResponseWriter, r *http.Request, userID int) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

// AuthHandler serves signup, login and logout.
type AuthHandler struct {
	base
	users    repositories.UserRepository
	sessions SessionStore
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, sessions SessionStore, logger *logrus.Logger, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{base: base{logger: logger, audit: audit}, users: users, sessions: sessions}
}

// Index handles GET /.
func (h *AuthHandler) Index(c *gin.Context) {
	redirect(c, "/login")
}

// LoginPage handles GET /login.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Title": pageTitles["login.html"]})
}

// SignupPage handles GET /signup.
func (h *AuthHandler) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"Title": pageTitles["signup.html"]})
}

// Login handles POST /login. It succeeds only when exactly one account with
// the submitted username accepts the password.
func (h *AuthHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	candidates, err := h.users.FindByUsername(c.Request.Context(), username)
	if err != nil {
		h.logStoreError(c, "login", err)
		observability.IncAuthAttempt("login", "error")
		h.loginError(c, msgDatabaseError)
		return
	}

	var matchID, matches int
	for _, candidate := range candidates {
		if auth.CheckPassword(candidate.PasswordHash, password) {
			matchID = candidate.ID
			matches++
		}
	}
	if matches != 1 {
		h.log(c).WithFields(logrus.Fields{"username": username, "matches": matches}).Info("login rejected")
		observability.IncAuthAttempt("login", "invalid")
		h.emitAudit(c, telemetry.LevelWarn, "login failed")
		h.loginError(c, msgInvalidLogin)
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, matchID); err != nil {
		h.log(c).WithError(err).Error("session save failed")
		observability.IncAuthAttempt("login", "error")
		h.loginError(c, msgDatabaseError)
		return
	}

	c.Set(middleware.ContextUserID, matchID)
	observability.IncAuthAttempt("login", "success")
	h.emitAudit(c, telemetry.LevelInfo, "login succeeded")
	redirect(c, "/home")
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		observability.IncAuthAttempt("signup", "invalid")
		h.signupError(c)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.log(c).WithError(err).Error("password hash failed")
		observability.IncAuthAttempt("signup", "error")
		h.signupError(c)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), username, hash)
	if err != nil {
		h.logStoreError(c, "signup", err)
		observability.IncAuthAttempt("signup", "error")
		h.signupError(c)
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, user.ID); err != nil {
		h.log(c).WithError(err).Error("session save failed")
		observability.IncAuthAttempt("signup", "error")
		h.signupError(c)
		return
	}

	c.Set(middleware.ContextUserID, user.ID)
	observability.IncAuthAttempt("signup", "success")
	h.emitAudit(c, telemetry.LevelInfo, "user signed up")
	redirect(c, "/home")
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		h.log(c).WithError(err).Warn("session clear failed")
	}
	redirect(c, "/login")
}

var pageTitles = map[string]string{
	"login.html":  "Login",
	"signup.html": "Sign Up",
}

// TooManyAttempts re-renders page for a rate-limited client.
func (h *AuthHandler) TooManyAttempts(page string) gin.HandlerFunc {
	title := pageTitles[page]
	return func(c *gin.Context) {
		observability.IncAuthAttempt(strings.TrimSuffix(page, ".html"), "rate_limited")
		c.HTML(http.StatusTooManyRequests, page, gin.H{"Title": title, "Error": msgTooManyAttempts})
	}
}

func (h *AuthHandler) loginError(c *gin.Context, msg string) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Title": pageTitles["login.html"], "Error": msg})
}

func (h *AuthHandler) signupError(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{"Title": pageTitles["signup.html"], "Error": msgSignupFailed})
}
