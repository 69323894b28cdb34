package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"partsadmin/internal/models"
	"partsadmin/internal/preview"
	"partsadmin/internal/productform"
)

//go:embed views/*.tmpl
var views embed.FS

type ViewData map[string]any

// Catalog is the shop API as the admin surface uses it.
type Catalog interface {
	productform.API
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id string) (models.Product, error)
}

type Options struct {
	Messages      *productform.Messages
	Policy        productform.SuccessPolicy
	SavedDelay    time.Duration
	SessionSecret string
	// Health is checked by GET /health when set.
	Health func() error
}

// Server renders the product form and owns the open forms.
type Server struct {
	api      Catalog
	previews *preview.Store
	forms    *Registry
	messages *productform.Messages
	policy   productform.SuccessPolicy
	delay    time.Duration
	secret   string
	health   func() error
}

func NewServer(api Catalog, previews *preview.Store, opts Options) *Server {
	s := &Server{
		api:      api,
		previews: previews,
		forms:    NewRegistry(api),
		messages: opts.Messages,
		policy:   opts.Policy,
		delay:    opts.SavedDelay,
		secret:   opts.SessionSecret,
		health:   opts.Health,
	}
	if s.messages == nil {
		s.messages = productform.MustMessages(productform.DefaultLocale)
	}
	if s.policy == nil {
		s.policy = productform.OptimisticPolicy
	}
	if s.secret == "" {
		s.secret = "dev_fallback_secret"
	}
	return s
}

func (s *Server) Forms() *Registry { return s.forms }

func (s *Server) formOptions() []productform.Option {
	return []productform.Option{
		productform.WithPreviews(s.previews),
		productform.WithMessages(s.messages),
		productform.WithPolicy(s.policy),
		productform.WithSavedDelay(s.delay),
	}
}

// Router wires the admin routes.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Static("/previews", s.previews.Dir())

	store := cookie.NewStore([]byte(s.secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("pa_session", store))

	r.SetHTMLTemplate(template.Must(template.New("").Funcs(s.funcs()).ParseFS(views, "views/*.tmpl")))

	r.GET("/health", func(c *gin.Context) {
		if s.health != nil {
			if err := s.health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "forms": s.forms.Len()})
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/admin/products")
	})

	admin := r.Group("/admin")
	admin.GET("/products", s.listProducts)
	admin.GET("/products/new", s.newProduct)
	admin.GET("/products/:id/edit", s.editProduct)
	admin.GET("/forms/:form", s.showForm)
	admin.POST("/forms/:form", s.updateForm)
	admin.POST("/forms/:form/cancel", s.cancelForm)
	return r
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"t": s.messages.Get,
		"price": func(p decimal.NullDecimal) string {
			if !p.Valid {
				return "-"
			}
			return p.Decimal.StringFixed(2)
		},
		"join": strings.Join,
		"seconds": func(d time.Duration) string {
			return fmt.Sprintf("%.1f", d.Seconds())
		},
	}
}
