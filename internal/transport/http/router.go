package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"maildrop/backend/internal/config"
	"maildrop/backend/internal/health"
	"maildrop/backend/internal/middleware"
	"maildrop/backend/internal/monitoring"
	"maildrop/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	GenerationService *service.GenerationService
	MessageService    *service.MessageService
	HealthChecker     *health.HealthChecker // 可选
	Metrics           *monitoring.Metrics   // 可选
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics, log)
		router.Use(mm.PanicRecovery())
		router.Use(mm.HTTPMetrics())
	} else {
		router.Use(gin.Recovery())
	}
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:  deps.Config.CORS.AllowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewHandler(deps.GenerationService, deps.MessageService, log)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/", handler.Index)

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	apiRoutes := router.Group("/api")
	{
		apiRoutes.GET("/generate", handler.GenerateEmail) // 生成临时邮箱
		apiRoutes.GET("/messages", handler.ListMessages)  // 获取收件箱
		apiRoutes.GET("/message", handler.GetMessage)     // 获取单封邮件
		apiRoutes.GET("/domain", handler.GetDomain)       // 当前邮箱域名
	}

	return router
}
