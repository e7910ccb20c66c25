package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/handlers"
	"studygroup/internal/middleware"
	"studygroup/internal/observability"
	"studygroup/internal/repositories"
	"studygroup/internal/telemetry"
	"studygroup/internal/views"
	"studygroup/internal/ws"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logrus.Logger
	Sessions      *auth.SessionManager
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Groups        repositories.GroupRepository
	GroupMessages repositories.GroupMessageRepository
	Messages      repositories.MessageRepository
	Hub           *ws.Hub
	Audit         *telemetry.AuditEmitter
	PublisherMode string
}

// NewRouter builds the gin engine with middleware and the full route table.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		d.Logger.WithError(err).Warn("invalid TRUSTED_PROXIES, trusting no proxy")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Server.ServiceName),
		middleware.RequestID(),
		observability.HTTPMetricsMiddleware(),
		middleware.AccessLog(d.Logger),
	)
	router.SetHTMLTemplate(views.MustLoad())

	router.Static("/static", cfg.Server.StaticDir)
	router.Static("/images", filepath.Join(cfg.Server.StaticDir, "images"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	authHandler := handlers.NewAuthHandler(d.Users, d.Sessions, d.Logger, d.Audit)
	postHandler := handlers.NewPostHandler(d.Posts, d.Comments, d.Logger, d.Audit)
	groupHandler := handlers.NewGroupHandler(d.Groups, d.GroupMessages, d.Hub, cfg.Groups.RequireMembership(), d.Logger, d.Audit)
	friendHandler := handlers.NewFriendHandler(d.Users, d.Logger)
	messageHandler := handlers.NewMessageHandler(d.Messages, d.Users, d.Hub, d.Logger)
	profileHandler := handlers.NewProfileHandler(d.Users, d.Logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst, d.Logger)

	router.GET("/", authHandler.Index)
	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", limiter.Limit(authHandler.TooManyAttempts("login.html")), authHandler.Login)
	router.GET("/signup", authHandler.SignupPage)
	router.POST("/signup", limiter.Limit(authHandler.TooManyAttempts("signup.html")), authHandler.Signup)
	router.GET("/logout", authHandler.Logout)

	authed := router.Group("/", middleware.RequireLogin(d.Sessions, d.Users, d.Logger))

	authed.GET("/home", postHandler.Home)
	authed.GET("/feed", postHandler.Feed)
	authed.GET("/post/:id", postHandler.ShowPost)
	authed.POST("/posts", postHandler.CreatePost)
	authed.POST("/posts/:id/delete", postHandler.DeletePost)
	authed.POST("/posts/:id/comments", postHandler.AddComment)

	authed.GET("/groups", groupHandler.ListGroups)
	authed.POST("/groups", groupHandler.CreateGroup)
	authed.GET("/group/:id", groupHandler.ShowGroup)
	authed.POST("/group/:id/messages", groupHandler.PostMessage)
	authed.POST("/group/:id/search-users", groupHandler.SearchUsers)
	authed.POST("/group/:id/add-member/:userId", groupHandler.AddMember)
	authed.POST("/group/:id/remove-member/:userId", groupHandler.RemoveMember)
	authed.POST("/group/:id/delete", groupHandler.DeleteGroup)
	authed.POST("/group/:id/update", groupHandler.UpdateGroup)

	authed.GET("/friends", friendHandler.ListFriends)
	authed.POST("/friends/search", friendHandler.Search)

	authed.GET("/messages", messageHandler.Inbox)
	authed.GET("/messages/:userId", messageHandler.Conversation)
	authed.POST("/messages/:userId", messageHandler.Send)

	authed.GET("/profile", profileHandler.Show)
	authed.POST("/profile", profileHandler.Update)

	groupWS := ws.NewGroupWebSocketHandler(d.Hub, d.Sessions, d.Groups, cfg.Server.AllowedOrigins)
	conversationWS := ws.NewConversationWebSocketHandler(d.Hub, d.Sessions, d.Users, cfg.Server.AllowedOrigins)
	router.GET("/ws/groups/:id", groupWS.Handle)
	router.GET("/ws/messages/:userId", conversationWS.Handle)

	handlers.RegisterDebugRoutes(authed, d.Audit, d.PublisherMode, cfg.IsDevelopment())

	return router
}
