package router

import (
	"log/slog"
	"net/http"

	"Nemi_Hub/internal/handler"
	"Nemi_Hub/internal/metrics"
	"Nemi_Hub/internal/middleware"
	"Nemi_Hub/internal/pkg"
	"Nemi_Hub/internal/repository/redis"
	"Nemi_Hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由依赖
type Deps struct {
	Users       *service.UserService
	Communities *service.CommunityService
	Decisions   *service.DecisionService
	JWT         *pkg.JWTManager
	Tokens      *redis.TokenRepository
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

func InitRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Logger != nil {
		r.Use(middleware.RequestLogger(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.GinMiddleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	user := handler.NewUserHandler(deps.Users)
	community := handler.NewCommunityHandler(deps.Communities)
	decision := handler.NewDecisionHandler(deps.Decisions)
	auth := middleware.AuthMiddleware(deps.JWT, deps.Tokens)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(auth)
	{
		authGroup.POST("/change-password", user.ChangePassword)
	}

	// 社区相关接口
	communityGroup := r.Group("/api/community")
	communityGroup.Use(auth)
	{
		communityGroup.POST("/create", community.Create)
		communityGroup.POST("/:id/join", community.Join)
		communityGroup.POST("/:id/leave", community.Leave)
		communityGroup.GET("/list", community.List)
	}

	// 决策与投票接口
	decisionGroup := r.Group("/api/decision")
	decisionGroup.Use(auth)
	{
		decisionGroup.POST("/create", decision.Create)
		decisionGroup.GET("/list", decision.List)
		decisionGroup.GET("/:id", decision.Get)
		decisionGroup.POST("/:id/activate", decision.Activate)
		decisionGroup.POST("/:id/close", decision.Close)
		decisionGroup.POST("/:id/vote", decision.Vote)
		decisionGroup.GET("/:id/tally", decision.Tally)
		decisionGroup.GET("/:id/votes", decision.Votes)
	}

	return r
}
