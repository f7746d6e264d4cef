package main

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/scrollspy"
	"github.com/Zachkp/folio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const themeCookie = "theme"

// app holds everything the handlers need.
type app struct {
	cfg     *config.Config
	content *content.Holder
	db      *store.DB
	contact *contact.Service
	logger  *zap.Logger

	adminToken  string
	hashingSalt string
	now         func() time.Time
}

func newApp(cfg *config.Config, holder *content.Holder, db *store.DB, logger *zap.Logger) (*app, error) {
	relay, err := newRelay(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		content: holder,
		db:      db,
		contact: contact.NewService(relay, db, logger),
		logger:  logger,
		now:     time.Now,
	}
	a.initAdmin()
	return a, nil
}

func newRelay(cfg *config.Config, logger *zap.Logger) (contact.Relay, error) {
	c := cfg.Contact
	switch c.Relay {
	case config.RelayForm:
		return contact.NewFormRelay(c.Endpoint, c.Timeout), nil
	case config.RelaySMTP:
		return contact.NewSMTPRelay(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPass, c.To), nil
	case config.RelayLog:
		return &contact.LogRelay{Logger: logger}, nil
	default:
		return nil, errors.New("unknown contact relay " + c.Relay)
	}
}

var templateFuncs = template.FuncMap{
	"csv": func(fs []float64) string {
		parts := make([]string, len(fs))
		for i, f := range fs {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, ",")
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(logging.Gin(a.logger), logging.Recovery(a.logger))
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")))

	assets := r.Group("/", logging.Quiet())
	assets.Static("/images", a.cfg.ImagesDir)
	assets.Static("/static", a.cfg.StaticDir)
	assets.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	site := r.Group("/")
	if a.cfg.Privacy.TrackVisitors {
		site.Use(a.visitorTrackingMiddleware())
	}

	// Home page route
	site.GET("/", a.handleIndex)

	site.POST("/theme", a.handleTheme)
	site.GET("/api/nav", a.handleNav)

	// HTMX fragments
	site.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Get in Touch"})
	})
	site.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", a.content.Get())
	})
	site.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", a.content.Get())
	})
	site.POST("/contact", a.handleContact)

	a.setupAdminRoutes(r)
	return r
}

// pageState is the navigation state the page is first rendered with. The
// browser core takes over from the same values.
func (a *app) pageState(c *gin.Context) (*scrollspy.Store, *content.Content) {
	cont := a.content.Get()
	dark := false
	if v, err := c.Cookie(themeCookie); err == nil {
		dark = v == "dark"
	}
	return scrollspy.NewStore(cont.Registry(), scrollspy.WithDarkMode(dark)), cont
}

func (a *app) handleIndex(c *gin.Context) {
	nav, cont := a.pageState(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"content": cont,
		"nav":     nav.Snapshot(),
		"cfg":     a.cfg.Nav,
		"debug":   a.cfg.Debug(),
		"year":    a.now().Year(),
	})
}

func (a *app) handleTheme(c *gin.Context) {
	nav, _ := a.pageState(c)
	dark := nav.ToggleTheme()

	value := "light"
	if dark {
		value = "dark"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, value, 365*24*3600, "/", "", false, false)

	if c.GetHeader("HX-Request") != "" || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{"dark_mode": dark})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

type navResponse struct {
	Sections         []scrollspy.Section `json:"sections"`
	DefaultSection   string              `json:"default_section"`
	OffsetPx         float64             `json:"offset_px"`
	ScrollMs         int64               `json:"scroll_ms"`
	GraceMs          int64               `json:"grace_ms"`
	Thresholds       []float64           `json:"thresholds"`
	ProgressDecimals int                 `json:"progress_decimals"`
}

func (a *app) handleNav(c *gin.Context) {
	reg := a.content.Get().Registry()
	n := a.cfg.Nav
	c.JSON(http.StatusOK, navResponse{
		Sections:         reg.Sections(),
		DefaultSection:   reg.Default(),
		OffsetPx:         n.OffsetPx,
		ScrollMs:         n.ScrollDuration.Milliseconds(),
		GraceMs:          n.ScrollGrace.Milliseconds(),
		Thresholds:       n.Thresholds,
		ProgressDecimals: n.ProgressDecimals,
	})
}

// Handle contact form submission with HTMX
func (a *app) handleContact(c *gin.Context) {
	var sub contact.Submission
	err := c.ShouldBind(&sub)
	if err == nil {
		sub = sub.Normalize()
		err = sub.Validate()
	}
	if err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please enter your name, a valid email address and a message.",
		})
		return
	}

	if _, err := a.contact.Submit(c.Request.Context(), sub); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
