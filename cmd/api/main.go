package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/metrics"
	"rollcall/internal/qr"
	"rollcall/internal/queue"
	"rollcall/internal/session"
	"rollcall/internal/store"
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
	var (
		db           *store.DB
		sessionStore session.Store
		recordStore  attendance.Store
	)
	if cfg.StoreBackend == "memory" {
		log.Println("using in-memory store backend")
		sessionStore = session.NewMemStore()
		recordStore = attendance.NewMemStore()
	} else {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		sessionStore = session.NewRepository(db.Client)
		recordStore = attendance.NewRepository(db.Client)
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
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:checkins")
	}

	registry := session.NewRegistry(sessionStore)
	coordinator := attendance.NewCoordinator(registry, recordStore)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := cfg.StoreBackend == "memory" || db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Lecturer identity is a stub: whoever registers a lecturer id gets
	// tokens for it. The token only scopes session create/end routes.
	r.POST("/api/auth/register", func(c *gin.Context) {
		var req struct {
			LecturerID string `json:"lecturerId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		tokens, err := auth.Issue(req.LecturerID, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	lecturer := r.Group("/api", auth.LecturerAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	lecturer.POST("/sessions", func(c *gin.Context) {
		var req struct {
			SessionID   string    `json:"sessionId"`
			CourseName  string    `json:"courseName"`
			Title       string    `json:"sessionTitle"`
			SessionType string    `json:"sessionType"`
			Location    string    `json:"location"`
			StartTime   time.Time `json:"startTime"`
			Duration    int       `json:"duration"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid session data"})
			return
		}
		s, err := registry.Create(c.Request.Context(), session.CreateSpec{
			PublicID:        req.SessionID,
			CourseName:      req.CourseName,
			Title:           req.Title,
			SessionType:     req.SessionType,
			Location:        req.Location,
			StartTime:       req.StartTime,
			DurationMinutes: req.Duration,
			CreatedBy:       c.GetString("lecturer_id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.SessionsCreated.Inc()
		c.JSON(http.StatusOK, s)
	})

	lecturer.PATCH("/sessions/:sessionId/end", func(c *gin.Context) {
		s, err := registry.Terminate(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		metrics.SessionsTerminated.WithLabelValues("manual").Inc()
		c.JSON(http.StatusOK, s)
	})

	r.GET("/api/sessions", func(c *gin.Context) {
		limit := cfg.RecentSessions
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		sessions, err := registry.ListRecent(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orEmptySessions(sessions))
	})

	r.GET("/api/sessions/active", func(c *gin.Context) {
		sessions, err := registry.ListActive(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orEmptySessions(sessions))
	})

	r.GET("/api/sessions/:sessionId", func(c *gin.Context) {
		s, err := registry.FindByPublicID(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	})

	r.GET("/api/sessions/:sessionId/validate", func(c *gin.Context) {
		s, err := registry.Validate(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				metrics.SessionsTerminated.WithLabelValues("expiry").Inc()
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, publicView(s))
	})

	r.GET("/api/sessions/:sessionId/qr", func(c *gin.Context) {
		s, err := registry.Validate(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				metrics.SessionsTerminated.WithLabelValues("expiry").Inc()
			}
			respondError(c, err)
			return
		}
		png, err := qr.RenderPNG(qr.NewPayload(s.PublicID, time.Now()), cfg.QRImageSize)
		if err != nil {
			log.Printf("qr render failed for %s: %v", s.PublicID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate QR code"})
			return
		}
		metrics.QRRendered.Inc()
		c.Data(http.StatusOK, "image/png", png)
	})

	r.GET("/api/sessions/:sessionId/live", func(c *gin.Context) {
		count, err := redisClient.CheckinCount(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "live count unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("sessionId"), "count": count})
	})

	r.POST("/api/attendance", func(c *gin.Context) {
		var req struct {
			SessionID    string `json:"sessionId"`
			QRData       string `json:"qrData"`
			StudentID    string `json:"studentId" binding:"required"`
			StudentName  string `json:"studentName" binding:"required"`
			StudentEmail string `json:"studentEmail"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid attendance data"})
			return
		}

		// Manual entry sends the session id directly; a scan sends the
		// raw QR payload. Either way the session is re-validated here.
		sessionID := req.SessionID
		if sessionID == "" {
			payload, err := qr.Parse(req.QRData)
			if err != nil {
				metrics.Checkins.WithLabelValues("invalid").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid QR code"})
				return
			}
			sessionID = payload.SessionID
		}

		rec, err := coordinator.CheckIn(c.Request.Context(), attendance.CheckInRequest{
			SessionID:     sessionID,
			StudentID:     req.StudentID,
			StudentName:   req.StudentName,
			StudentEmail:  req.StudentEmail,
			OriginAddress: c.ClientIP(),
		})
		if err != nil {
			metrics.Checkins.WithLabelValues(checkinResult(err)).Inc()
			if errors.Is(err, session.ErrExpired) {
				metrics.SessionsTerminated.WithLabelValues("expiry").Inc()
			}
			respondError(c, err)
			return
		}
		metrics.Checkins.WithLabelValues("ok").Inc()

		if err := q.Publish(c.Request.Context(), queue.Message{Type: "checkin", Body: []byte(rec.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}

		c.JSON(http.StatusOK, rec)
	})

	r.GET("/api/sessions/:sessionId/attendance", func(c *gin.Context) {
		records, err := coordinator.ListForSession(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		if records == nil {
			records = []attendance.Record{}
		}
		c.JSON(http.StatusOK, records)
	})

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

// respondError maps domain failures to the HTTP boundary. Inactive and
// Expired stay distinct: students get different guidance for each.
func respondError(c *gin.Context, err error) {
	var vErr *session.ValidationError
	var dupErr *attendance.DuplicateError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": vErr.Error()})
	case errors.As(err, &dupErr):
		c.JSON(http.StatusConflict, gin.H{
			"message":     "Already checked in",
			"checkinTime": dupErr.CheckinTime,
		})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
	case errors.Is(err, session.ErrInactive):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Session is no longer active"})
	case errors.Is(err, session.ErrExpired):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Session has expired"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

func checkinResult(err error) string {
	var dupErr *attendance.DuplicateError
	switch {
	case errors.As(err, &dupErr):
		return "duplicate"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrInactive):
		return "inactive"
	case errors.Is(err, session.ErrExpired):
		return "expired"
	default:
		return "error"
	}
}

// publicView is the snapshot handed to students during validation; it
// omits the internal id and the creator.
func publicView(s session.Session) gin.H {
	return gin.H{
		"sessionId":    s.PublicID,
		"courseName":   s.CourseName,
		"sessionTitle": s.Title,
		"sessionType":  s.SessionType,
		"location":     s.Location,
		"startTime":    s.StartTime,
		"duration":     s.DurationMinutes,
		"isActive":     s.Active,
	}
}

func orEmptySessions(sessions []session.Session) []session.Session {
	if sessions == nil {
		return []session.Session{}
	}
	return sessions
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
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
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
