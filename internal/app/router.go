package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teesheet/internal/config"
	"teesheet/internal/domain/block"
	"teesheet/internal/domain/cart"
	"teesheet/internal/domain/catalog"
	"teesheet/internal/domain/fleet"
	"teesheet/internal/domain/flight"
	"teesheet/internal/domain/member"
	"teesheet/internal/domain/schedule"
	"teesheet/internal/domain/settlement"
	"teesheet/internal/domain/staff"
	"teesheet/internal/middleware"
	"teesheet/internal/realtime"
)

func (a *App) routes(cfg *config.Config, reports *settlement.Reports) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		staff.RegisterRoutes(v1, staff.NewHandler(a.Staff))

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(a.JWT))
		{
			admin := middleware.AdminOnly()
			starter := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleStarter)

			schedule.RegisterRoutes(protected, schedule.NewHandler(a.Schedule), admin)
			block.RegisterRoutes(protected, block.NewHandler(a.Blocks, a.Schedule), starter)
			member.RegisterRoutes(protected, member.NewHandler(a.Members))
			fleet.RegisterRoutes(protected, fleet.NewHandler(a.Fleet))
			catalog.RegisterRoutes(protected, catalog.NewHandler(a.Catalog))
			flight.RegisterRoutes(protected, flight.NewHandler(a.Flights))
			cart.RegisterRoutes(protected, cart.NewHandler(a.Carts))

			desk := protected.Group("")
			desk.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleDesk))
			settlement.RegisterRoutes(desk, settlement.NewHandler(a.Settlements, reports))
		}
	}

	ws := r.Group("")
	ws.Use(middleware.JWTAuth(a.JWT))
	realtime.NewHandler(a.Hub).RegisterRoutes(ws)

	return r
}
