package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/api/handler"
	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
)

// Handlers 路由用到的全部 handler
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Registration *handler.RegistrationHandler
	Plan         *handler.PlanHandler
	UserPlan     *handler.UserPlanHandler
	Bill         *handler.BillHandler
	Statement    *handler.StatementHandler
	WebSocket    *handler.WebSocketHandler
}

type Router struct {
	handlers *Handlers
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	cfg      *config.Config
}

func NewRouter(handlers *Handlers, m *metrics.Metrics, log logrus.FieldLogger, cfg *config.Config) *Router {
	return &Router{
		handlers: handlers,
		metrics:  m,
		log:      log,
		cfg:      cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := r.handlers

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log))
	engine.Use(middleware.Metrics(r.metrics))
	engine.Use(middleware.CORS(r.cfg.CORS))

	if r.metrics != nil && r.cfg.Metrics.Enabled {
		engine.GET(r.cfg.Metrics.Path, gin.WrapH(r.metrics.Handler()))
	}

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", h.WebSocket.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/github", h.Auth.GithubAuth)
			auth.GET("/github/callback", h.Auth.GithubCallback)
		}

		// 公开接口 - 套餐
		plans := api.Group("/plans")
		{
			plans.GET("", h.Plan.List)
			plans.GET("/:id", h.Plan.Get)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", h.User.GetProfile)
				user.PUT("/profile", h.User.UpdateProfile)
			}

			// 订阅
			userPlans := authenticated.Group("/user-plans")
			{
				userPlans.POST("", h.UserPlan.Subscribe)
				userPlans.GET("", h.UserPlan.List)
				userPlans.GET("/insights", h.UserPlan.Insights)
				userPlans.GET("/insights/export", h.UserPlan.ExportInsights)
				userPlans.DELETE("/:id", h.UserPlan.Unsubscribe)
			}

			// 账单
			bills := authenticated.Group("/bills")
			{
				bills.GET("/all/download", h.Bill.DownloadAll)
				bills.POST("/archive", h.Statement.Archive)
				bills.GET("/archive", h.Statement.List)
				bills.GET("/archive/:id", h.Statement.Get)
				bills.GET("/:id/calculation", h.Bill.Calculate)
				bills.GET("/:id/download", h.Bill.Download)
			}
		}

		// 管理员接口
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.AdminOnly())
		{
			registrations := admin.Group("/registrations")
			{
				registrations.GET("", h.Registration.ListPending)
				registrations.POST("/approve-all", h.Registration.ApproveAll)
				registrations.POST("/reject-all", h.Registration.RejectAll)
				registrations.POST("/:id/approve", h.Registration.Approve)
				registrations.POST("/:id/reject", h.Registration.Reject)
			}

			plans := admin.Group("/plans")
			{
				plans.POST("", h.Plan.Create)
				plans.PUT("/:id", h.Plan.Update)
				plans.DELETE("/:id", h.Plan.Delete)
			}

			userPlans := admin.Group("/user-plans")
			{
				userPlans.GET("", h.UserPlan.AdminList)
				userPlans.POST("/:id/approve", h.UserPlan.Approve)
				userPlans.POST("/:id/reject", h.UserPlan.Reject)
			}
		}
	}

	return engine
}
