package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hosteld/internal/adms"
	"hosteld/internal/attendance"
	"hosteld/internal/auth"
	"hosteld/internal/config"
	"hosteld/internal/devices"
	"hosteld/internal/directory"
	"hosteld/internal/docstore"
	"hosteld/internal/hostel"
	"hosteld/internal/httpmiddleware"
	"hosteld/internal/locks"
	"hosteld/internal/queue"
	"hosteld/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "hosteld:events")
	}

	loc := cfg.DeviceLocation()

	personRepo := directory.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)
	deviceRepo := devices.NewRepository(db.Client)
	hostelRepo := hostel.NewRepository(db.Client)
	staffRepo := auth.NewStaffRepository(db.Client)

	var locker locks.PersonLocker
	switch cfg.PunchLock {
	case "local":
		locker = locks.NewLocal()
	case "redis":
		locker = locks.NewRedis(redisClient.Client)
	default:
		locker = locks.Nop{}
	}

	intake := adms.NewIntake(
		adms.NewParser(loc),
		directory.NewResolver(personRepo),
		directory.NewActivator(personRepo),
		attRepo,
		attendance.NewRecorder(attRepo, q),
		deviceRepo,
		locker,
		devices.Config{
			MinOutGapSeconds:       cfg.MinOutGapSeconds,
			DuplicateWindowSeconds: cfg.DuplicateWindowSeconds,
		},
	)

	leaveSvc := hostel.NewService(hostelRepo, q)

	var docs *docstore.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		docs = docstore.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("document store configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("document store not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics", "/iclock/getrequest"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Device routes: plain text, no auth, no rate limit. The terminal's
	// retry loop must only ever see OK or ERROR.
	adms.NewHandler(intake, deviceRepo).Register(r)

	r.POST("/v1/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		staff, err := staffRepo.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrBadCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		tokens, err := auth.Issue(staff.ID, staff.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		_ = staffRepo.SaveRefreshToken(c.Request.Context(), staff.ID, tokens.RefreshToken, tokens.RefreshExp)
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	api := r.Group("/v1",
		httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware(),
		auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer),
	)

	api.GET("/persons", func(c *gin.Context) {
		limit, offset := queryInt(c, "limit", 50), queryInt(c, "offset", 0)
		people, err := personRepo.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"persons": people})
	})

	api.GET("/persons/:id", func(c *gin.Context) {
		p, err := personRepo.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	})

	api.POST("/persons", func(c *gin.Context) {
		var p directory.Person
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved, err := personRepo.Upsert(c.Request.Context(), p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, saved)
	})

	api.POST("/persons/:id/pin", func(c *gin.Context) {
		var req struct {
			PIN string `json:"pin" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := personRepo.SetDevicePIN(c.Request.Context(), c.Param("id"), req.PIN); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "pending enrollment"})
	})

	api.GET("/devices", func(c *gin.Context) {
		list, err := deviceRepo.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": list})
	})

	api.POST("/devices/register", func(c *gin.Context) {
		var req struct {
			Serial   string  `json:"serial" binding:"required"`
			Location *string `json:"location"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deviceRepo.Upsert(c.Request.Context(), req.Serial, req.Location); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"serial": req.Serial})
	})

	api.PUT("/devices/:serial/config", func(c *gin.Context) {
		var req struct {
			MinOutGapSeconds       int `json:"min_out_gap_seconds" binding:"required"`
			DuplicateWindowSeconds int `json:"duplicate_window_seconds" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := deviceRepo.UpdateConfig(c.Request.Context(), c.Param("serial"), devices.Config{
			MinOutGapSeconds:       req.MinOutGapSeconds,
			DuplicateWindowSeconds: req.DuplicateWindowSeconds,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"serial": c.Param("serial")})
	})

	api.GET("/attendance", func(c *gin.Context) {
		personID := c.Query("person_id")
		if personID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "person_id required"})
			return
		}
		today := attendance.DayOf(time.Now(), loc)
		from := c.DefaultQuery("from", today)
		to := c.DefaultQuery("to", today)
		records, err := attRepo.ListRange(c.Request.Context(), personID, from, to, queryInt(c, "limit", 200))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	api.GET("/attendance/summary", func(c *gin.Context) {
		personID := c.Query("person_id")
		day := c.DefaultQuery("day", attendance.DayOf(time.Now(), loc))
		if personID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "person_id required"})
			return
		}
		s, err := attRepo.GetSummary(c.Request.Context(), personID, day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no summary for day"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	api.POST("/leaves", func(c *gin.Context) {
		var lr hostel.LeaveRequest
		if err := c.ShouldBindJSON(&lr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved, err := leaveSvc.Submit(c.Request.Context(), lr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, saved)
	})

	api.GET("/leaves", func(c *gin.Context) {
		list, err := hostelRepo.List(c.Request.Context(), c.Query("person_id"), c.Query("status"), queryInt(c, "limit", 50))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": list})
	})

	api.POST("/leaves/:id/decision", auth.RequireRole("warden", "admin"), func(c *gin.Context) {
		var req struct {
			Status string  `json:"status" binding:"required"`
			Note   *string `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claimsAny, _ := c.Get("claims")
		claims, _ := claimsAny.(auth.Claims)
		lr, err := leaveSvc.Decide(c.Request.Context(), c.Param("id"), req.Status, claims.Subject, req.Note)
		if err != nil {
			switch {
			case errors.Is(err, hostel.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, hostel.ErrAlreadyDecided):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, lr)
	})

	api.GET("/notifications", func(c *gin.Context) {
		personID := c.Query("person_id")
		if personID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "person_id required"})
			return
		}
		list, err := hostelRepo.ListNotifications(c.Request.Context(), personID, queryInt(c, "limit", 50))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": list})
	})

	// Upload endpoint — accepts a multipart file or a base64 data URL and
	// returns the stored document URL for use in /v1/leaves.
	api.POST("/uploads", func(c *gin.Context) {
		if docs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document storage not configured"})
			return
		}

		contentType := c.ContentType()
		var result *docstore.UploadResult
		var err error

		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = docs.UploadBytes(data, header.Filename)

		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = docs.UploadBase64(body.Data)
		}

		if err != nil {
			log.Printf("document upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "document upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"url":       result.SecureURL,
			"public_id": result.PublicID,
			"bytes":     result.Bytes,
		})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
