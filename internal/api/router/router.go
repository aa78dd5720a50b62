package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/adapter/notification"
	"buildstate/internal/api/handler"
	"buildstate/internal/api/middleware"
	"buildstate/internal/core/buildstate"
	"buildstate/internal/pkg/auth"
	"buildstate/internal/pkg/config"
	"buildstate/internal/pkg/crypto"
	"buildstate/internal/pkg/jwt"
	"buildstate/internal/pkg/logger"
	"buildstate/internal/repository"
	"buildstate/internal/service"
	"buildstate/pkg/utils"
)

// Services 路由依赖的服务集合, 由 NewServices 统一组装
type Services struct {
	StateCodes *service.StateCodeService
	Builds     *service.BuildService
	Artifacts  *service.ArtifactService
	Variables  *service.VariableService
	Resume     *service.ResumeService
	Jobs       *service.JobService
	Projects   *service.ProjectService
	Platforms  *service.PlatformService
	OSVersions *service.OSVersionService
	ImageTypes *service.ImageTypeService
	Users      service.UserService
	Auth       service.AuthService
	Dashboard  *service.DashboardService
}

// NewServices 组装全部服务
func NewServices(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Services, error) {
	cipher, err := crypto.NewCipher(cfg.Crypto.AESKey)
	if err != nil {
		return nil, err
	}

	repos := repository.New(db)
	notifier := notification.New(cfg.Notification, logger.Named("notify"))
	sm := buildstate.NewStateMachine(db, notifier, logger.Named("state-machine"))
	ldapService := service.NewLDAPService(&cfg.Auth.LDAP)

	return &Services{
		StateCodes: service.NewStateCodeService(db, cfg.Policy, logger),
		Builds:     service.NewBuildService(db, sm, logger),
		Artifacts:  service.NewArtifactService(db, logger),
		Variables:  service.NewVariableService(repos, cipher, logger),
		Resume:     service.NewResumeService(db, sm, notifier, logger),
		Jobs:       service.NewJobService(repos, logger),
		Projects:   service.NewProjectService(repos, logger),
		Platforms:  service.NewPlatformService(repos, logger),
		OSVersions: service.NewOSVersionService(repos, logger),
		ImageTypes: service.NewImageTypeService(repos, logger),
		Users:      service.NewUserService(repos, logger),
		Auth:       service.NewAuthService(&cfg.Auth, repos, jwt.NewManager(cfg.Auth.JWT), ldapService, logger),
		Dashboard:  service.NewDashboardService(repos),
	}, nil
}

// Setup 设置路由
func Setup(cfg *config.Config, db *gorm.DB, svc *Services) *gin.Engine {
	// 设置Gin模式
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := utils.RegisterValidators(v); err != nil {
			logger.Fatal("注册校验规则失败", zap.Error(err))
		}
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())

	healthHandler := handler.NewHealthHandler(db)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handler.NewAuthHandler(svc.Auth, svc.Users)
	userHandler := handler.NewUserHandler(svc.Users)
	stateCodeHandler := handler.NewStateCodeHandler(svc.StateCodes)
	buildHandler := handler.NewBuildHandler(svc.Builds)
	artifactHandler := handler.NewArtifactHandler(svc.Artifacts)
	variableHandler := handler.NewVariableHandler(svc.Variables)
	resumeHandler := handler.NewResumeHandler(svc.Resume)
	jobHandler := handler.NewJobHandler(svc.Jobs)
	dashboardHandler := handler.NewDashboardHandler(svc.Dashboard)

	view := middleware.RequirePermission(auth.PermView)
	perm := middleware.RequirePermission

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证相关(无需token)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandler.Login)
			authGroup.POST("/idm", authHandler.LoginIDM)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(svc.Auth))

		authed.GET("/auth/me", authHandler.Me)

		// 用户与Token, 本人/管理员校验在服务层
		users := authed.Group("/users")
		{
			users.POST("", perm(auth.PermUserManage), userHandler.Create)
			users.GET("", perm(auth.PermUserManage), userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PATCH("/:id", userHandler.Update)
			users.POST("/:id/tokens", userHandler.CreateToken)
			users.GET("/:id/tokens", userHandler.ListTokens)
			users.DELETE("/:id/tokens/:token_id", userHandler.DeleteToken)
		}

		// 目录数据
		registerCatalog(authed.Group("/projects"), handler.NewCatalogHandler(svc.Projects))
		registerCatalog(authed.Group("/platforms"), handler.NewCatalogHandler(svc.Platforms))
		registerCatalog(authed.Group("/os-versions"), handler.NewCatalogHandler(svc.OSVersions))
		registerCatalog(authed.Group("/image-types"), handler.NewCatalogHandler(svc.ImageTypes))

		// 状态码与恢复策略(项目下)
		projects := authed.Group("/projects/:id")
		{
			projects.POST("/state-codes", perm(auth.PermStateCodeCreate), stateCodeHandler.Create)
			projects.GET("/state-codes", view, stateCodeHandler.List)
			projects.GET("/state-codes/:state_code_id", view, stateCodeHandler.Get)
			projects.PUT("/state-codes/:state_code_id", perm(auth.PermStateCodeUpdate), stateCodeHandler.Update)
			projects.DELETE("/state-codes/:state_code_id", perm(auth.PermStateCodeDelete), stateCodeHandler.Delete)

			projects.POST("/resumable-states", perm(auth.PermResumableCreate), resumeHandler.CreateResumableState)
			projects.GET("/resumable-states", view, resumeHandler.ListResumableStates)
			projects.GET("/resumable-states/:state_code", view, resumeHandler.GetResumableState)
			projects.PUT("/resumable-states/:state_code", perm(auth.PermResumableUpdate), resumeHandler.UpdateResumableState)
		}

		// 构建
		builds := authed.Group("/builds")
		{
			builds.POST("", perm(auth.PermBuildCreate), buildHandler.Create)
			builds.GET("", view, buildHandler.List)
			builds.GET("/:id", view, buildHandler.Get)
			builds.GET("/:id/state", view, buildHandler.GetState)
			builds.POST("/:id/state", perm(auth.PermBuildUpdate), buildHandler.Transition)
			builds.POST("/:id/failure", perm(auth.PermBuildUpdate), buildHandler.RecordFailure)
			builds.GET("/:id/history", view, buildHandler.History)
			builds.POST("/:id/failures", perm(auth.PermBuildUpdate), buildHandler.CreateFailure)
			builds.GET("/:id/failures", view, buildHandler.ListFailures)
			builds.PATCH("/:id/failures/:failure_id", perm(auth.PermBuildUpdate), buildHandler.ResolveFailure)

			builds.POST("/:id/artifacts", perm(auth.PermArtifactCreate), artifactHandler.Register)
			builds.GET("/:id/artifacts", view, artifactHandler.List)
			builds.GET("/:id/artifacts/:artifact_id", view, artifactHandler.Get)
			builds.PATCH("/:id/artifacts/:artifact_id", perm(auth.PermArtifactCreate), artifactHandler.Update)
			builds.DELETE("/:id/artifacts/:artifact_id", perm(auth.PermArtifactDelete), artifactHandler.Delete)

			builds.POST("/:id/variables", perm(auth.PermVariableWrite), variableHandler.Set)
			builds.GET("/:id/variables", view, variableHandler.List)
			builds.GET("/:id/variables/dict", view, variableHandler.Dict)
			builds.GET("/:id/variables/:key", view, variableHandler.Get)
			builds.PATCH("/:id/variables/:key", perm(auth.PermVariableWrite), variableHandler.Update)
			builds.DELETE("/:id/variables/:key", perm(auth.PermVariableWrite), variableHandler.Delete)

			builds.GET("/:id/resume-context", view, resumeHandler.Context)
			builds.POST("/:id/resume", perm(auth.PermResumeRequest), resumeHandler.CreateRequest)
			builds.GET("/:id/resume-requests", view, resumeHandler.ListByBuild)

			builds.POST("/:id/jobs", perm(auth.PermJobCreate), jobHandler.Create)
			builds.GET("/:id/jobs", view, jobHandler.List)
			builds.PATCH("/:id/jobs/:job_id", perm(auth.PermJobUpdate), jobHandler.Update)
		}

		// 恢复请求队列(编排系统)
		resumeRequests := authed.Group("/resume-requests")
		{
			resumeRequests.GET("", view, resumeHandler.List)
			resumeRequests.GET("/:id", view, resumeHandler.GetRequest)
			resumeRequests.PATCH("/:id", perm(auth.PermResumeUpdate), resumeHandler.UpdateRequest)
		}

		dashboard := authed.Group("/dashboard", view)
		{
			dashboard.GET("/summary", dashboardHandler.Summary)
			dashboard.GET("/recent", dashboardHandler.Recent)
		}
	}

	return r
}

// catalogRoutes 目录 handler 的方法集合
type catalogRoutes interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func registerCatalog(g *gin.RouterGroup, h catalogRoutes) {
	g.POST("", middleware.RequirePermission(auth.PermCatalogWrite), h.Create)
	g.GET("", middleware.RequirePermission(auth.PermView), h.List)
	g.GET("/:id", middleware.RequirePermission(auth.PermView), h.Get)
	g.PUT("/:id", middleware.RequirePermission(auth.PermCatalogWrite), h.Update)
	g.DELETE("/:id", middleware.RequirePermission(auth.PermCatalogDelete), h.Delete)
}
