package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/config"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
	authSubjectKey  = "authSubject"
)

var preflightAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// Analyzer is the analysis boundary the HTTP layer depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Response, error)
}

type App struct {
	cfg      config.Config
	analyzer Analyzer
	audit    AuditRecorder
	logger   *zap.Logger
}

// New wires the HTTP surface. audit may be nil when no database is configured.
func New(cfg config.Config, analyzer Analyzer, audit AuditRecorder, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, analyzer: analyzer, audit: audit, logger: logger}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.requestIDMiddleware(), a.requestLogger())
	router.Use(cors.New(a.corsConfig()))

	router.GET("/health", a.health)

	handlers := []gin.HandlerFunc{a.analyzeMessage}
	if a.cfg.AuthEnabled() {
		handlers = append([]gin.HandlerFunc{a.authMiddleware()}, handlers...)
	}

	router.OPTIONS("/analyze-message", a.preflight)
	router.POST("/analyze-message", handlers...)

	if prefix := strings.TrimRight(strings.TrimSpace(a.cfg.APIPrefix), "/"); prefix != "" {
		api := router.Group(prefix)
		api.OPTIONS("/analyze-message", a.preflight)
		api.POST("/analyze-message", handlers...)
	}

	return router
}

func (a *App) allowAllOrigins() bool {
	for _, origin := range a.cfg.CORSAllowOrigins {
		if origin == "*" {
			return true
		}
	}
	return len(a.cfg.CORSAllowOrigins) == 0
}

func (a *App) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  preflightAllowHeaders,
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if a.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = a.cfg.CORSAllowOrigins
	}
	return cfg
}

// preflight answers OPTIONS requests that carry no Origin header; the cors
// middleware handles the rest before routing.
func (a *App) preflight(c *gin.Context) {
	if a.allowAllOrigins() {
		c.Header("Access-Control-Allow-Origin", "*")
	}
	c.Header("Access-Control-Allow-Headers", strings.Join(preflightAllowHeaders, ", "))
	c.Status(http.StatusOK)
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "relationshipai-api",
	})
}

func (a *App) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info("request",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}

		sub, _ := claims["sub"].(string)
		c.Set(authSubjectKey, strings.TrimSpace(sub))
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
