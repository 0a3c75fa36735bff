package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/controller"
	"lingua_lms_backend/internal/coursestore"
	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/service"
	"lingua_lms_backend/pkg/database"
	"lingua_lms_backend/pkg/logger"
	"lingua_lms_backend/pkg/monitoring"
	"lingua_lms_backend/pkg/security"
	"lingua_lms_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Bus             feed.Bus
	CourseStore     *coursestore.Store
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	notebook      *repository.NotebookRepository
	source        *repository.SourceRepository
	note          *repository.NoteRepository
	chat          *repository.ChatRepository
	generationJob *repository.GenerationJobRepository
	meeting       *repository.MeetingRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	cache      *service.QueryCache
	notebook   *service.NotebookService
	chat       *service.ChatService
	workflow   *service.WorkflowService
	generation *service.GenerationService
	meeting    *service.MeetingService
	feedHub    *service.FeedHub
}

type controllers struct {
	auth       *controller.AuthController
	course     *controller.CourseController
	exam       *controller.ExamController
	notebook   *controller.NotebookController
	chat       *controller.ChatController
	generation *controller.GenerationController
	meeting    *controller.MeetingController
	feed       *controller.FeedController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig fans a freshly loaded config out to registered callbacks.
// Components that cache config values opt in via RegisterConfigCallback.
func (a *App) ReloadConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB, bus feed.Bus) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		notebook:      repository.NewNotebookRepository(db, bus),
		source:        repository.NewSourceRepository(db, bus),
		note:          repository.NewNoteRepository(db, bus),
		chat:          repository.NewChatRepository(db, bus),
		generationJob: repository.NewGenerationJobRepository(db),
		meeting:       repository.NewMeetingRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, bus feed.Bus) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.notebook = service.NewNotebookService(repos.notebook, repos.source, repos.note, bus, logger.Log)
	// Chat shares the notebook service's cache so feed events patch both.
	s.cache = s.notebook.Cache
	if err := s.notebook.Start(context.Background()); err != nil {
		logger.Log.Fatal("Failed to attach query cache to change feed", zap.Error(err))
	}

	workflow, err := service.NewWorkflowService(cfg.Workflow)
	if err != nil {
		logger.Log.Warn("Workflow engine disabled", zap.Error(err))
	}
	s.workflow = workflow

	// A nil replier disables AI replies but keeps human chat working.
	var replier service.ChatReplier
	if workflow != nil {
		replier = workflow
	}
	s.chat = service.NewChatService(repos.chat, repos.notebook, bus, s.cache, replier, logger.Log)

	s.generation = service.NewGenerationService(repos.generationJob, repos.notebook, workflow, cfg.Generation.ClaimTTL, logger.Log)

	meeting, err := service.NewMeetingService(cfg.Meeting, repos.meeting, logger.Log)
	if err != nil {
		logger.Log.Warn("Meeting provider disabled", zap.Error(err))
	}
	s.meeting = meeting

	s.feedHub = service.NewFeedHub(bus)
	go s.feedHub.Run()

	return s
}

func (a *App) initControllers(s *services, store *coursestore.Store, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		course:     controller.NewCourseController(store),
		exam:       controller.NewExamController(store),
		notebook:   controller.NewNotebookController(s.notebook, s.storage),
		chat:       controller.NewChatController(s.chat),
		generation: controller.NewGenerationController(s.generation, s.notebook),
		meeting:    controller.NewMeetingController(s.meeting),
		feed:       controller.NewFeedController(s.feedHub),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config)
		c.Next()
	})
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	bus := feed.NewRedisBus(rdb, logger.Log)

	backend, err := coursestore.NewFileBackend(cfg.CourseDoc.Dir)
	if err != nil {
		logger.Log.Fatal("Failed to open course document store", zap.Error(err))
	}
	store := coursestore.NewStore(backend, logger.Log)
	if err := store.Reload(); err != nil {
		logger.Log.Fatal("Failed to load course document", zap.Error(err))
	}

	app := &App{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Bus:         bus,
		CourseStore: store,
	}

	repos := app.initRepositories(db, bus)
	services := app.initServices(repos, cfg, bus)
	app.services = services
	controllers := app.initControllers(services, store, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("lingua-lms", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
		router.Static("/api/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Close websocket clients and detach the cache from the feed before
	// the HTTP listener goes away.
	if a.services != nil {
		if a.services.feedHub != nil {
			a.services.feedHub.Stop()
		}
		if a.services.notebook != nil {
			a.services.notebook.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
