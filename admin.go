// admin.go - privacy-conscious admin dashboard and visitor tracking
package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/store"
)

const (
	adminCookie          = "admin_token"
	devAdminPassword     = "admin123"
	messagesPageSize     = 100
	visitorsPageSize     = 200
	adminSessionLifetime = 24 * time.Hour
)

// initAdmin generates the session token and the IP hashing salt. Both live
// only as long as the process, so a restart logs the admin out and makes
// older visitor hashes unlinkable.
func (a *app) initAdmin() {
	a.adminToken = generateToken()
	a.hashingSalt = generateToken()

	a.logger.Info("admin access available", zap.String("path", "/admin/login"))
	if a.cfg.Debug() {
		a.logger.Debug("admin token (dev only)", zap.String("token", a.adminToken))
	}
	if a.cfg.Privacy.TrackVisitors {
		a.logger.Info("visitor tracking enabled with hashed IP addresses")
	}
}

func generateToken() string {
	b := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (a *app) hashIP(ip string) string {
	return store.HashIP(ip, a.hashingSalt)
}

// adminPassword is the configured password. Debug builds fall back to a
// well-known one; release builds without a password have login disabled.
func (a *app) adminPassword() (string, bool) {
	if a.cfg.Admin.Password != "" {
		return a.cfg.Admin.Password, true
	}
	if a.cfg.Debug() {
		return devAdminPassword, true
	}
	return "", false
}

func (a *app) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func untrackedPath(path string) bool {
	for _, prefix := range []string{"/static/", "/images/", "/admin/", "/api/", "/favicon", "/privacy", "/healthz"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// visitorTrackingMiddleware records successful page views with a hashed IP.
// Only full page GETs count; HTMX fragment loads and requests sending
// DNT: 1 are not recorded.
func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.Request.URL.Path
		switch {
		case c.Request.Method != http.MethodGet,
			c.GetHeader("HX-Request") != "",
			c.GetHeader("DNT") == "1",
			c.Writer.Status() >= http.StatusBadRequest,
			untrackedPath(path):
			return
		}
		ctx := context.WithoutCancel(c.Request.Context())
		if err := a.db.RecordVisit(ctx, a.hashIP(c.ClientIP()), c.Request.UserAgent(), path, a.now()); err != nil {
			a.logger.Warn("recording visitor", zap.Error(err))
		}
	}
}

// pruneVisitors deletes visitor records older than the retention period.
func (a *app) pruneVisitors(ctx context.Context) (int64, error) {
	n, err := a.db.PruneVisitors(ctx, a.now().Add(-a.cfg.Privacy.Retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.logger.Info("privacy cleanup", zap.Int64("removed", n), zap.Duration("retention", a.cfg.Privacy.Retention))
	}
	return n, nil
}

// cleanupLoop prunes once immediately and then every interval until ctx is
// done.
func (a *app) cleanupLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := a.pruneVisitors(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("privacy cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *app) adminError(c *gin.Context, status int, msg string, err error) {
	a.logger.Error(msg, zap.Error(err))
	c.HTML(status, "admin-error.html", gin.H{"error": msg})
}

func (a *app) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"tracking":  a.cfg.Privacy.TrackVisitors,
			"retention": int(a.cfg.Privacy.Retention.Hours() / 24),
			"content":   a.content.Get(),
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		_, enabled := a.adminPassword()
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title":    "Admin Login",
			"disabled": !enabled,
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		password, enabled := a.adminPassword()
		if !enabled {
			c.HTML(http.StatusForbidden, "admin-login.html", gin.H{
				"disabled": true,
				"error":    "Admin login is disabled until a password is configured",
			})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(c.PostForm("username")), []byte(a.cfg.Admin.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(c.PostForm("password")), []byte(password)) == 1
		if !userOK || !passOK {
			a.logger.Warn("failed admin login", zap.String("from", a.hashIP(c.ClientIP())))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(adminCookie, a.adminToken, int(adminSessionLifetime.Seconds()), "/admin", "", !a.cfg.Debug(), true)
		a.logger.Info("admin login", zap.String("from", a.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin", a.adminAuthMiddleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context(), a.now())
		if err != nil {
			a.adminError(c, http.StatusInternalServerError, "Failed to load statistics", err)
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context(), a.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/messages", func(c *gin.Context) {
		msgs, err := a.db.Messages(c.Request.Context(), limitParam(c, messagesPageSize))
		if err != nil {
			a.adminError(c, http.StatusInternalServerError, "Failed to load messages", err)
			return
		}
		c.HTML(http.StatusOK, "admin-messages.html", gin.H{"messages": msgs})
	})

	admin.DELETE("/messages/:id", func(c *gin.Context) {
		id := c.Param("id")
		err := a.db.DeleteMessage(c.Request.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		case err != nil:
			a.logger.Error("deleting message", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		default:
			a.logger.Info("message deleted", zap.String("id", id))
			c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
		}
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.db.RecentVisitors(c.Request.Context(), limitParam(c, visitorsPageSize))
		if err != nil {
			a.adminError(c, http.StatusInternalServerError, "Failed to load visitors", err)
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := a.pruneVisitors(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context(), a.now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=folio-stats.json")
		c.JSON(http.StatusOK, stats)
	})
}

// limitParam reads ?limit=, capped at limit.
func limitParam(c *gin.Context, limit int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > limit {
		return limit
	}
	return n
}
