package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Controllers struct {
	Users       *UserController
	Rooms       *RoomController
	Memberships *MembershipController
	Chat        *ChatController
	Media       *MediaController
	MindMaps    *MindMapController
	Auth        *AuthMiddleware
}

type RouterOptions struct {
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Log       *slog.Logger
}

func SetupRouter(opts RouterOptions, c Controllers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Metrics(), RequestLogger(opts.Log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.CORS.AllowOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
		requestIDHeader,
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{requestIDHeader, "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if opts.RateLimit.Enabled {
		api.Use(RateLimit(opts.RateLimit.RPS, opts.RateLimit.Burst))
	}
	authed := c.Auth.Require()

	if c.Users != nil {
		users := api.Group("/users")
		users.POST("/register", c.Users.Register)
		users.GET("/me", authed, c.Users.Me)
		users.PUT("/me", authed, c.Users.UpdateMe)
	}

	rooms := api.Group("/study_rooms")
	if c.Rooms != nil {
		rooms.GET("", c.Rooms.ListRooms)
		rooms.POST("", authed, c.Rooms.CreateRoom)
		rooms.GET("/:roomID", authed, c.Rooms.GetRoom)
	}

	room := rooms.Group("/:roomID", authed)

	if c.Memberships != nil {
		room.POST("/join", c.Memberships.RequestJoin)
		room.GET("/membership", c.Memberships.GetMembership)
		room.GET("/members/pending", c.Memberships.ListPending)
		room.GET("/members", c.Memberships.ListApproved)
		room.PUT("/members/:userID", c.Memberships.Decide)
	}

	if c.Chat != nil {
		room.GET("/chat/messages", c.Chat.ListMessages)
		room.POST("/chat/messages", c.Chat.PostMessage)
		room.GET("/chat/ws", c.Chat.Stream)
	}

	if c.Media != nil {
		room.POST("/media", c.Media.Upload)
		room.GET("/media", c.Media.List)
		api.GET("/media/:mediaID", authed, c.Media.Download)
	}

	if c.MindMaps != nil {
		room.GET("/mindmap", c.MindMaps.Get)
		room.POST("/mindmap", c.MindMaps.Save)
	}

	return router
}
