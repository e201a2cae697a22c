package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	bolt "go.etcd.io/bbolt"

	"github.com/warner-apps/service-timeclock/cache"
	"github.com/warner-apps/service-timeclock/database"
	"github.com/warner-apps/service-timeclock/handlers"
	"github.com/warner-apps/service-timeclock/timeclock"
)

var logger *slog.Logger

func main() {
	var err error

	port := flag.String("p", "8080", "port to serve the board on")
	logLevelFlag := flag.String("l", "info", "slog log level")
	flag.Parse()

	//setup logger
	var logLevel = new(slog.LevelVar)

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logLevel.Set(slog.LevelInfo)
	err = setLogLevel(*logLevelFlag, logLevel)
	if err != nil {
		logger.Error("can not set log level", "error", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("can not load configuration", "error", err)
		os.Exit(1)
	}

	store, err := database.Open(cfg.Database)
	if err != nil {
		logger.Error("can not open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	boltDB, err := bolt.Open(cfg.SnapshotPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		logger.Warn("can not open snapshot file, board will not survive restarts", "path", cfg.SnapshotPath, "error", err)
		boltDB = nil
	} else {
		defer boltDB.Close()
	}

	engine := timeclock.New(cfg.TZOffsetHours)
	board := cache.New(engine, store, cfg.RefreshInterval, cfg.FetchTimeout, boltDB)

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	refreshDone := make(chan struct{})
	go func() {
		board.Run(refreshCtx)
		close(refreshDone)
	}()

	h := &handlers.Handlers{
		Board:    board,
		Branches: cfg.Branches,
	}

	//serve the dashboard and set up the handlers for the UI to use
	router := gin.Default()

	router.Use(corsMiddleware())

	// health endpoint
	router.GET("/healthz", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "healthy",
		})
	})

	router.GET("/ping", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	router.GET("/status", func(context *gin.Context) {
		snap := board.Latest()
		if snap == nil {
			context.JSON(http.StatusOK, gin.H{
				"message": "waiting for first refresh",
			})
			return
		}
		context.JSON(http.StatusOK, gin.H{
			"message":      "good",
			"last_refresh": snap.LastRefresh,
			"record_count": len(snap.Records),
		})
	})

	router.GET("/logLevel/:level", func(context *gin.Context) {
		err = setLogLevel(context.Param("level"), logLevel)
		if err != nil {
			logger.Error("can not set log level", "error", err)
			context.JSON(http.StatusInternalServerError, err.Error())
			return
		}
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	router.GET("/logLevel", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	router.GET("/api/timeclock", h.GetTimeclock)
	router.GET("/api/timeclock/export", h.ExportTimeclock)
	router.GET("/api/branches", h.GetBranches)

	//serve the dashboard page
	sitePath := "/board"
	router.GET("/", func(context *gin.Context) {
		branch := context.Query("branch")
		if branch == "" {
			branch = cfg.DefaultBranch
		}
		context.Redirect(http.StatusTemporaryRedirect, sitePath+"?branch="+branch)
	})

	webRoot := "./web"
	router.StaticFS(sitePath, http.Dir(webRoot))

	router.NoRoute(func(context *gin.Context) {
		if strings.HasPrefix(context.Request.RequestURI, sitePath) {
			// Only redirect if we are already in the board sitePath
			context.File(webRoot + "/index.html")
		}
		context.Redirect(http.StatusFound, sitePath)
	})

	server := &http.Server{
		Addr:           ":" + *port,
		Handler:        router,
		MaxHeaderBytes: 1024 * 10,
	}

	go func() {
		logger.Info("starting service time clock board", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	//wait for a stop signal, then let the in-flight refresh finish and drain
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("stopping service time clock board")

	stopRefresh()
	<-refreshDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}

func setLogLevel(level string, logLevel *slog.LevelVar) error {
	level = strings.ToLower(level)
	if level == "debug" {
		logLevel.Set(slog.LevelDebug)
	} else if level == "info" {
		logLevel.Set(slog.LevelInfo)
	} else if level == "warn" {
		logLevel.Set(slog.LevelWarn)
	} else if level == "error" {
		logLevel.Set(slog.LevelError)
	} else {
		return fmt.Errorf("the debug level must be one of (debug, info, warn, error) received %s", level)
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
