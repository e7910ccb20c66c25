package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/models"
	"studygroup/internal/repositories"
)

const (
	ContextUserID = "userID"
	ContextUser   = "user"
)

// Sessions is the part of the session manager the gate needs.
type Sessions interface {
	UserID(r *http.Request) (int, error)
	Logout(w http.ResponseWriter, r *http.Request) error
}

// RequireLogin redirects to /login unless the session carries a user id that
// still resolves to a stored user. The fresh user row is placed in the context.
func RequireLogin(sessions Sessions, users repositories.UserRepository, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := sessions.UserID(c.Request)
		if err != nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				_ = sessions.Logout(c.Writer, c.Request)
			} else {
				logger.WithError(err).WithFields(logrus.Fields{
					"user_id":    userID,
					"request_id": c.GetString(ContextRequestID),
				}).Error("session user lookup failed")
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user loaded by RequireLogin.
func CurrentUser(c *gin.Context) models.User {
	if val, ok := c.Get(ContextUser); ok {
		if user, ok := val.(models.User); ok {
			return user
		}
	}
	return models.User{}
}
