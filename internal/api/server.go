package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Varaprasad-34/college-job-portal/internal/api/auth"
	"github.com/Varaprasad-34/college-job-portal/internal/api/middleware"
	"github.com/Varaprasad-34/college-job-portal/internal/config"
	"github.com/Varaprasad-34/college-job-portal/internal/model"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/metrics"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/notify"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/ratelimit"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/viewguard"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端以及 Gin 路由引擎。
// 请求之间不共享任何进程内可变状态，并发控制完全交给存储层。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	auth   *auth.Handler
	jobs   JobStore
	apps   ApplicationStore
	views  ViewGuard
}

// ViewGuard 判断一次职位浏览是否应计入浏览量。
type ViewGuard interface {
	ShouldCount(ctx context.Context, jobID, viewerID uint) (bool, error)
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移（含职位全文索引）
// 2. 连接 Redis
// 3. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Job{}, &model.Application{}); err != nil {
		return nil, err
	}
	// AutoMigrate 不支持全文索引，单独建（已存在则跳过）
	if !db.Migrator().HasIndex(&model.Job{}, "idx_jobs_search") {
		if err := db.Exec("CREATE FULLTEXT INDEX idx_jobs_search ON jobs (title, description, company)").Error; err != nil {
			logger.Warn("create fulltext index failed", slog.String("error", err.Error()))
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.Init()

	mailer := notify.NewEmailNotifier(&cfg.Email, logger)
	limiter := ratelimit.NewLimiter(rdb, "jobportal:ratelimit:auth:", cfg.App.RateLimit, cfg.App.RateBurst)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		router: r,
		auth:   auth.NewHandler(db, cfg, mailer, logger),
		jobs:   dbJobStore{db: db},
		apps:   dbApplicationStore{db: db},
		views:  viewguard.NewGuard(rdb, cfg.App.ViewDedupWindow),
	}
	s.registerRoutes(limiter)
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if closeErr := sqlDB.Close(); closeErr != nil {
			if firstErr == nil {
				firstErr = closeErr
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(limiter *ratelimit.Limiter) {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	// 未认证接口按 IP 限流
	public := s.router.Group("/auth")
	public.Use(middleware.RateLimit(limiter, s.logger))
	public.POST("/register", s.auth.Register)
	public.POST("/login", s.auth.Login)
	public.POST("/forgot-password", s.auth.ForgotPassword)
	public.POST("/reset-password", s.auth.ResetPassword)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))

	authed.GET("/auth/me", s.auth.Me)
	authed.PUT("/auth/profile", s.auth.UpdateProfile)
	authed.PUT("/auth/change-password", s.auth.ChangePassword)

	authed.GET("/jobs", s.handleListJobs)
	authed.POST("/jobs", s.handleCreateJob)
	authed.GET("/jobs/:id", s.handleGetJob)
	authed.PUT("/jobs/:id", s.handleUpdateJob)
	authed.DELETE("/jobs/:id", s.handleDeleteJob)

	authed.GET("/users/profile/:id", s.handleGetUserProfile)
	authed.PUT("/users/profile", s.auth.UpdateProfile)
	authed.GET("/users/my-jobs", s.handleMyJobs)
	authed.POST("/users/apply/:jobId", s.handleApply)
	authed.GET("/users/my-applications", s.handleMyApplications)
	authed.PUT("/users/application-status/:jobId/:userId", s.handleUpdateApplicationStatus)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseQueryInt 解析查询参数中的整数值。
func parseQueryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return iv
}

func parseIDParam(c *gin.Context, key string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(key), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	if id, ok := v.(uint); ok {
		return id
	}
	return 0
}

func getUserRole(c *gin.Context) string {
	v, ok := c.Get("role")
	if !ok {
		return ""
	}
	if role, ok := v.(string); ok {
		return role
	}
	return ""
}
