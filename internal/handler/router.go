package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicore/booking-api/internal/middleware"
	"github.com/clinicore/booking-api/internal/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	Slots        *SlotHandler
	Appointments *AppointmentHandler
	Users        *UserHandler
	Payments     *PaymentHandler
	Metrics      *MetricsHandler
	JWT          gin.HandlerFunc
}

// RegisterRoutes mounts the API under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	admin := string(models.RoleAdmin)
	patient := string(models.RolePatient)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.PUT("/password", h.JWT, h.Auth.ChangePassword)

	slots := api.Group("/slots", h.JWT)
	slots.GET("", h.Slots.List)
	slots.POST("", middleware.RBAC(admin), h.Slots.Create)
	slots.GET("/:id", h.Slots.Get)
	slots.DELETE("/:id", middleware.RBAC(admin), h.Slots.Delete)
	slots.POST("/:id/book", middleware.RBAC(patient, admin), h.Slots.Book)
	slots.DELETE("/:id/book", middleware.RBAC(patient, admin), h.Slots.Cancel)

	appointments := api.Group("/appointments")
	// download uses its own signed token, not a bearer token
	appointments.GET("/export/:token", h.Appointments.Download)
	appointments.Use(h.JWT)
	appointments.GET("", h.Appointments.ListMine)
	appointments.GET("/all", middleware.RBAC(admin), h.Appointments.ListAll)
	appointments.GET("/date/:date", middleware.RBAC(admin), h.Appointments.ListByDate)
	appointments.POST("/export", middleware.RBAC(admin), h.Appointments.Export)
	appointments.GET("/:id", h.Appointments.Get)
	appointments.PATCH("/:id/status", middleware.RBAC(admin), h.Appointments.UpdateStatus)

	users := api.Group("/users", h.JWT)
	users.GET("", middleware.RBAC(admin), h.Users.List)
	users.GET("/me", h.Users.Me)
	users.GET("/:id", middleware.RBAC(admin, "SELF"), h.Users.Get)
	users.PUT("/:id", middleware.RBAC(admin, "SELF"), h.Users.Update)
	users.DELETE("/:id", middleware.RBAC(admin), h.Users.Delete)

	payments := api.Group("/payments", h.JWT)
	payments.GET("", h.Payments.ListMine)
	payments.GET("/all", middleware.RBAC(admin), h.Payments.ListAll)
	payments.POST("/intent", h.Payments.CreateIntent)
	payments.POST("/confirm", h.Payments.Confirm)

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
}
