package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"eventbook/internal/infra/config"
	"eventbook/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	ListMine(c *gin.Context)
	ListSupplier(c *gin.Context)
	Transition(c *gin.Context)
	PreviewCancellation(c *gin.Context)
	Cancel(c *gin.Context)
	RecordPayment(c *gin.Context)
	SubmitReview(c *gin.Context)
	SupplierReviews(c *gin.Context)
}

type CalendarHTTP interface {
	Slot(c *gin.Context)
	BlockedDates(c *gin.Context)
	SetBlocked(c *gin.Context)
	SetCapacity(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Calendar       CalendarHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/transitions", h.Booking.Transition)
		api.POST("/bookings/:id/cancellation/preview", h.Booking.PreviewCancellation)
		api.POST("/bookings/:id/cancellation", h.Booking.Cancel)
		api.POST("/bookings/:id/payments", h.Booking.RecordPayment)
		api.POST("/bookings/:id/reviews", h.Booking.SubmitReview)
		api.GET("/me/bookings", h.Booking.ListMine)
		api.GET("/supplier/bookings", h.Booking.ListSupplier)
		api.GET("/suppliers/:id/reviews", h.Booking.SupplierReviews)
	}
	if h.Calendar != nil {
		suppliers := api.Group("/suppliers/:id")
		suppliers.GET("/slots/:date", h.Calendar.Slot)
		suppliers.GET("/blocked-dates", h.Calendar.BlockedDates)
		suppliers.PUT("/slots/:date/blocked", h.Calendar.SetBlocked)
		suppliers.PUT("/slots/:date/capacity", h.Calendar.SetCapacity)
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "route not found", Code: "not_found"})
	})
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
