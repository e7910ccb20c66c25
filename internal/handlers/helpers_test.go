package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"studygroup/internal/middleware"
	"studygroup/internal/models"
	"studygroup/internal/views"
)

var alice = models.User{ID: 1, Username: "alice", ProfilePicture: models.DefaultProfilePicture}

func newRouter(user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(views.MustLoad())
	if user != nil {
		u := *user
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserID, u.ID)
			c.Set(middleware.ContextUser, u)
			c.Next()
		})
	}
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
