package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/citygallery/citygallery/internal/config"
	"github.com/citygallery/citygallery/internal/handler"
	"github.com/citygallery/citygallery/internal/middleware"
	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/cache"
	"github.com/citygallery/citygallery/pkg/database"
	"github.com/citygallery/citygallery/pkg/logging"
	"github.com/citygallery/citygallery/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if cfg.AppEnv == "development" {
		if err := seedBranches(db); err != nil {
			slog.Error("failed to seed branches", "error", err)
			os.Exit(1)
		}
		if err := seedAdminUser(db); err != nil {
			slog.Error("failed to seed admin user", "error", err)
			os.Exit(1)
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)

	// Optional backends
	weatherCache := buildWeatherCache(cfg)
	searchSvc := buildSearch(cfg)
	imageStorage := buildImageStorage(cfg)

	// Services
	feedSvc := service.NewFeedService(postRepo, likeRepo, commentRepo)
	postSvc := service.NewPostService(postRepo, groupRepo, searchSvc)
	interactionSvc := service.NewInteractionService(postRepo, likeRepo, commentRepo)
	groupSvc := service.NewGroupService(groupRepo, userRepo)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	branchSvc := service.NewBranchService(branchRepo)
	weatherSvc := service.NewWeatherService(branchRepo, weatherCache, cfg.WeatherAPIKey, cfg.WeatherCacheTTL)
	metricsSvc := service.NewMetricsService(metricsRepo)

	// Handlers
	postHandler := handler.NewPostHandler(feedSvc, postSvc, interactionSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	adminHandler := handler.NewAdminHandler(authSvc)
	branchHandler := handler.NewBranchHandler(branchSvc)
	weatherHandler := handler.NewWeatherHandler(weatherSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	uploadHandler := handler.NewUploadHandler(imageStorage)

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics())
	setupCORS(router, cfg)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
		auth.PATCH("/me", authMiddleware.RequireAuth(), authHandler.UpdateMe)
		auth.PATCH("/password", authMiddleware.RequireAuth(), authHandler.ChangePassword)
	}

	admin := api.Group("/admin")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", authMiddleware.OptionalAuth(), postHandler.ListPosts)
		posts.POST("", authMiddleware.RequireAuth(), postHandler.CreatePost)
		posts.GET("/:id", postHandler.GetPost)
		posts.PATCH("/:id", authMiddleware.RequireAuth(), postHandler.UpdatePost)
		posts.DELETE("/:id", authMiddleware.RequireAuth(), postHandler.DeletePost)
		posts.POST("/:id/like", authMiddleware.RequireAuth(), postHandler.ToggleLike)
		posts.GET("/:id/comments", postHandler.ListComments)
		posts.POST("/:id/comments", authMiddleware.RequireAuth(), postHandler.AddComment)
		posts.DELETE("/:id/comments/:commentId", authMiddleware.RequireAuth(), postHandler.DeleteComment)
		posts.GET("/:id/preview", authMiddleware.OptionalAuth(), postHandler.PreviewPost)
	}

	groups := api.Group("/groups")
	{
		groups.GET("", authMiddleware.OptionalAuth(), groupHandler.ListGroups)
		groups.POST("", authMiddleware.RequireAuth(), groupHandler.CreateGroup)
		groups.GET("/mine", authMiddleware.RequireAuth(), groupHandler.MyGroups)
		groups.GET("/joinable", authMiddleware.RequireAuth(), groupHandler.JoinableGroups)
		groups.POST("/:id/join", authMiddleware.RequireAuth(), groupHandler.JoinGroup)
		groups.POST("/:id/leave", authMiddleware.RequireAuth(), groupHandler.LeaveGroup)
		groups.PATCH("/:id", authMiddleware.RequireAuth(), groupHandler.UpdateGroup)
		groups.GET("/:id/members", authMiddleware.RequireAuth(), groupHandler.GroupMembers)
		groups.DELETE("/:id/members/:userId", authMiddleware.RequireAuth(), groupHandler.RemoveMember)
		groups.DELETE("/:id", authMiddleware.RequireAuth(), groupHandler.DeleteGroup)
	}

	branches := api.Group("/branches")
	{
		branches.GET("", branchHandler.ListBranches)
		branches.GET("/:id", branchHandler.GetBranch)
		branches.POST("", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin(), branchHandler.CreateBranch)
		branches.PATCH("/:id", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin(), branchHandler.UpdateBranch)
		branches.DELETE("/:id", authMiddleware.RequireAuth(), authMiddleware.RequireAdmin(), branchHandler.DeleteBranch)
	}

	api.GET("/weather/branches", weatherHandler.BranchesWeather)
	api.GET("/metrics/landing", metricsHandler.Landing)
	api.POST("/uploads", authMiddleware.RequireAuth(), uploadHandler.UploadImage)

	slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Post{},
		&model.PostLike{},
		&model.Comment{},
		&model.Branch{},
	)
}

// buildWeatherCache prefers redis and falls back to the in-process map.
func buildWeatherCache(cfg *config.Config) cache.Cache {
	if cfg.RedisURL == "" {
		return cache.NewMemory()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Warn("invalid REDIS_URL, using in-memory cache", "error", err)
		return cache.NewMemory()
	}
	return cache.NewRedis(redis.NewClient(opts))
}

func buildSearch(cfg *config.Config) service.SearchService {
	if cfg.MeiliSearchHost == "" {
		slog.Info("search indexing disabled, MEILISEARCH_HOST not set")
		return service.NewNoopSearchService()
	}

	host := cfg.MeiliSearchHost
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}
	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return service.NewSearchService(client)
}

func buildImageStorage(cfg *config.Config) storage.ImageStorage {
	if cfg.CloudinaryCloudName == "" && os.Getenv("CLOUDINARY_URL") == "" {
		slog.Info("image uploads disabled, cloudinary not configured")
		return nil
	}

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		slog.Warn("failed to initialize cloudinary storage", "error", err)
		return nil
	}
	return imageStorage
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	origins := strings.Split(cfg.AllowedOrigins, ",")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

func seedBranches(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Branch{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	branches := []model.Branch{
		{Name: "Tel Aviv Art Museum", Address: "27 Shaul Hamelech Blvd, Tel Aviv, Israel", Lat: 32.077046, Lng: 34.786738},
		{Name: "Louvre Museum", Address: "Rue de Rivoli, 75001 Paris, France", Lat: 48.860611, Lng: 2.337644},
		{Name: "MoMA", Address: "11 W 53rd St, New York, NY 10019, USA", Lat: 40.761433, Lng: -73.977622},
		{Name: "Tate Modern", Address: "Bankside, London SE1 9TG, UK", Lat: 51.507595, Lng: -0.099356},
		{Name: "Mori Art Museum", Address: "Roppongi Hills, Tokyo, Japan", Lat: 35.660484, Lng: 139.729249},
		{Name: "MCA Sydney", Address: "140 George St, The Rocks NSW 2000, Australia", Lat: -33.858732, Lng: 151.210005},
	}

	if err := db.Create(&branches).Error; err != nil {
		return err
	}
	slog.Info("seeded gallery branches", "count", len(branches))
	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("role = ?", model.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Username:     "admin",
		Email:        "admin@citygallery.local",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	slog.Info("seeded admin user", "username", admin.Username)
	return nil
}
