package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/repositories"
	"studygroup/internal/telemetry"
)

// PostHandler serves status updates and their comments.
type PostHandler struct {
	base
	posts    repositories.PostRepository
	comments repositories.CommentRepository
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(posts repositories.PostRepository, comments repositories.CommentRepository, logger *logrus.Logger, audit *telemetry.AuditEmitter) *PostHandler {
	return &PostHandler{base: base{logger: logger, audit: audit}, posts: posts, comments: comments}
}

// Home handles GET /home: the caller's own posts.
func (h *PostHandler) Home(c *gin.Context) {
	posts, err := h.posts.ListPostsByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logStoreError(c, "list_own_posts", err)
	}
	render(c, http.StatusOK, "home.html", gin.H{"Title": "Home", "Posts": orEmpty(posts)})
}

// Feed handles GET /feed: every post from every user.
func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.posts.ListAllPosts(c.Request.Context())
	if err != nil {
		h.logStoreError(c, "list_posts", err)
	}
	render(c, http.StatusOK, "feed.html", gin.H{"Title": "Feed", "Posts": orEmpty(posts)})
}

// CreatePost handles POST /posts.
func (h *PostHandler) CreatePost(c *gin.Context) {
	content := strings.TrimSpace(c.PostForm("content"))
	if content != "" {
		if _, err := h.posts.CreatePost(c.Request.Context(), currentUserID(c), content); err != nil {
			h.logStoreError(c, "create_post", err)
		}
	}
	redirect(c, "/home")
}

// DeletePost handles POST /posts/:id/delete. Only the author's own post is removed.
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		redirect(c, "/home")
		return
	}

	deleted, err := h.posts.DeletePost(c.Request.Context(), postID, currentUserID(c))
	switch {
	case err != nil:
		h.logStoreError(c, "delete_post", err)
	case deleted:
		h.emitAudit(c, telemetry.LevelInfo, "post deleted")
	default:
		h.log(c).WithField("post_id", postID).Debug("delete matched no post of this author")
	}
	redirect(c, "/home")
}

// ShowPost handles GET /post/:id.
func (h *PostHandler) ShowPost(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		redirect(c, "/feed")
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), postID)
	if err != nil {
		if !errors.Is(err, repositories.ErrPostNotFound) {
			h.logStoreError(c, "get_post", err)
		}
		redirect(c, "/feed")
		return
	}

	comments, err := h.comments.ListComments(c.Request.Context(), postID)
	if err != nil {
		h.logStoreError(c, "list_comments", err)
	}
	render(c, http.StatusOK, "post.html", gin.H{
		"Title":    "Post by " + post.Username,
		"Post":     post,
		"Comments": orEmpty(comments),
	})
}

// AddComment handles POST /posts/:id/comments.
func (h *PostHandler) AddComment(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		redirect(c, "/feed")
		return
	}

	if content := strings.TrimSpace(c.PostForm("comment")); content != "" {
		if _, err := h.comments.CreateComment(c.Request.Context(), postID, currentUserID(c), content); err != nil {
			h.logStoreError(c, "create_comment", err)
		}
	}
	redirect(c, fmt.Sprintf("/post/%d", postID))
}
