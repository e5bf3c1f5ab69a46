package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/collabpad/collabpad/handlers"
	"github.com/collabpad/collabpad/internal/config"
	"github.com/collabpad/collabpad/internal/database"
	"github.com/collabpad/collabpad/internal/document/manager"
	"github.com/collabpad/collabpad/internal/document/repository"
	"github.com/collabpad/collabpad/internal/polish"
	"github.com/collabpad/collabpad/internal/presence"
	"github.com/collabpad/collabpad/internal/realtime"
	"github.com/collabpad/collabpad/internal/storage"
	"github.com/collabpad/collabpad/internal/tokens"
	"github.com/collabpad/collabpad/internal/users"
	"github.com/collabpad/collabpad/pkg/logger"
	"github.com/collabpad/collabpad/pkg/metrics"
	"github.com/collabpad/collabpad/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v polish=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Polish.APIKey != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the token blacklist and rate limiter can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(context.Background()).Err(); err == nil {
			tokens.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races
	ctx := context.Background()
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		}
		defer func() { _ = mongoClient.Disconnect(ctx) }()
	} else {
		logger.Fatalf("MONGODB_URI is required")
	}

	db := mongoClient.Database(cfg.MongoDB.Database)
	userSvc := users.NewService(users.NewMongoUserRepository(db.Collection("users")))
	docRepo := repository.NewMongoRepo(db.Collection("documents"))

	// Optional MinIO snapshot archive for persisted revisions
	var archiver manager.Archiver
	if cfg.Snapshot.Enabled {
		arch, err := storage.NewSnapshotArchive(storage.LoadMinIOConfig())
		if err != nil {
			logger.Warnf("snapshot archive disabled: %v", err)
		} else {
			archiver = arch
			logger.Infof("snapshot archive enabled (bucket=%s)", cfg.Snapshot.Bucket)
		}
	}

	docs := manager.New(docRepo, archiver, manager.DefaultDebounce)
	defer docs.Close()
	pres := presence.NewStore(cfg.Presence.StaleAfter, docRepo)
	verifier := tokens.NewVerifier(cfg.JWT.Secret)

	rt := realtime.NewServer(realtime.NewRegistry(), realtime.NewHub(), pres, docs, verifier, userSvc)
	r.GET("/ws", rt.HandleWebSocket)

	root := r.Group("/")
	handlers.NewAuthHandler(cfg, userSvc, verifier).Register(root)
	handlers.NewDocumentHandler(docs, pres, verifier).Register(root)
	handlers.NewPolishHandler(polish.NewClient(cfg.Polish), verifier).Register(root)
	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps["mongodb"] = mongoClient.Ping(pingCtx, nil) == nil
		if !deps["mongodb"] {
			ready = false
		}

		if redisClient != nil {
			deps["redis"] = redisClient.Ping(pingCtx).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting collabpad on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
