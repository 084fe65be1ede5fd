package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/deskhub/backend/internal/ai"
	"github.com/deskhub/backend/internal/config"
	"github.com/deskhub/backend/internal/db"
	"github.com/deskhub/backend/internal/http/handlers"
	"github.com/deskhub/backend/internal/http/middleware"
	"github.com/deskhub/backend/internal/routing"
	"github.com/deskhub/backend/internal/service"

	_ "github.com/deskhub/backend/docs"
)

func Router(cfg config.Config, store *db.Store, assistant ai.Assistant, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-Id", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Assistant: assistant,
		Router: &routing.Engine{
			Tickets:   store,
			Directory: store,
			Clock:     routing.UTCClock{},
			Logger:    logger,
		},
		Dashboard: &service.DashboardService{Store: store, Logger: logger},
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(middleware.Identity(store))
	{
		api.GET("/me", h.Me)
		api.PUT("/me", h.MeUpdate)

		api.POST("/tickets", h.TicketCreate)
		api.GET("/tickets", h.TicketsList)
		api.GET("/tickets/:id", h.TicketDetails)
		api.POST("/tickets/:id/replies", h.ReplyCreate)
		api.POST("/tickets/:id/feedback", h.FeedbackCreate)

		api.POST("/chats", h.ChatCreate)
		api.GET("/chats", h.ChatsList)
		api.GET("/chats/:id", h.ChatDetails)
		api.POST("/chats/:id/messages", h.ChatMessage)
		api.POST("/chats/:id/close", h.ChatClose)
	}

	agent := api.Group("")
	agent.Use(middleware.RequireAgent())
	{
		agent.PATCH("/tickets/:id", h.TicketUpdate)
		agent.POST("/tickets/:id/claim", h.TicketClaim)
		agent.POST("/tickets/:id/draft", h.DraftReply)
		agent.POST("/tickets/:id/grade", h.GradeDraft)
		agent.POST("/tickets/:id/summary", h.SummarizeTicket)
		agent.POST("/chats/:id/connect", h.ChatConnect)
		agent.GET("/dashboard", h.DashboardStats)
		agent.GET("/agents", h.AgentsList)
		agent.GET("/teams", h.TeamsList)
		agent.GET("/teams/:id/members", h.TeamMembersList)
		agent.GET("/skills", h.SkillsList)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/import", h.Import)
		admin.POST("/tickets/:id/route", h.TicketRoute)
		admin.GET("/approvals", h.PendingProfiles)
		admin.POST("/approvals/:id", h.SetApproval)
		admin.POST("/teams", h.TeamCreate)
		admin.DELETE("/teams/:id", h.TeamDelete)
		admin.POST("/teams/:id/members", h.TeamMemberAdd)
		admin.DELETE("/teams/:id/members/:user_id", h.TeamMemberRemove)
		admin.POST("/skills", h.SkillCreate)
		admin.DELETE("/skills/:id", h.SkillDelete)
		admin.POST("/employees/:id/skills", h.EmployeeSkillGrant)
		admin.DELETE("/employees/:id/skills/:skill_id", h.EmployeeSkillRevoke)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
