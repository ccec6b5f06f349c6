package router

import (
	"time"

	"restopos/internal/config"
	"restopos/internal/handler"
	"restopos/internal/metrics"
	"restopos/internal/middleware"
	"restopos/internal/model"
	"restopos/internal/repository"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher service.CuentaDispatcher) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	vendedorRepo := repository.NewVendedorRepository(db)
	mesaRepo := repository.NewMesaRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	reservaRepo := repository.NewReservaRepository(db)
	metodoPagoRepo := repository.NewMetodoPagoRepository(db)
	integridadRepo := repository.NewIntegridadRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(vendedorRepo, cfg)
	mesaSvc := service.NewMesaService(mesaRepo, productoRepo, reservaRepo, metodoPagoRepo, dispatcher)
	grupoSvc := service.NewGrupoMesaService(mesaRepo, metodoPagoRepo)
	productoSvc := service.NewProductoService(productoRepo)
	metodoPagoSvc := service.NewMetodoPagoService(metodoPagoRepo)
	reservaSvc := service.NewReservaService(reservaRepo, mesaRepo)
	integridadSvc := service.NewIntegridadService(integridadRepo, mesaRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	mesasH := handler.NewMesasHandler(mesaSvc, cfg.RestaurantName)
	gruposH := handler.NewGruposMesasHandler(grupoSvc)
	ventasH := handler.NewVentasHandler(mesaSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	metodosH := handler.NewMetodosPagoHandler(metodoPagoSvc)
	reservasH := handler.NewReservasHandler(reservaSvc)
	integridadH := handler.NewIntegridadHandler(integridadSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(handler.DatabaseCheck(db), handler.RedisCheck(rdb)))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")

	// Auth (public)
	api.POST("/auth/login", middleware.LoginRateLimiter(), authH.Login)

	// Protected routes
	v1 := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	todos := middleware.RequireRole(model.RolAdmin, model.RolCajero, model.RolMesero)
	caja := middleware.RequireRole(model.RolAdmin, model.RolCajero)
	admin := middleware.RequireRole(model.RolAdmin)
	{
		mesas := v1.Group("/mesas")
		{
			mesas.GET("", todos, mesasH.Listar)
			mesas.GET("/estadisticas", todos, mesasH.Estadisticas)
			mesas.GET("/:id", todos, mesasH.Obtener)
			mesas.POST("", admin, mesasH.Crear)
			mesas.PUT("/:id", admin, mesasH.Actualizar)
			mesas.DELETE("/:id", admin, mesasH.Eliminar)

			// Session lifecycle: meseros serve, cajeros collect.
			mesas.POST("/abrir", todos, mesasH.Abrir)
			mesas.POST("/:id/ventas", todos, mesasH.RegistrarVenta)
			mesas.POST("/:id/solicitar-cuenta", todos, mesasH.SolicitarCuenta)
			mesas.GET("/:id/prefactura", todos, mesasH.Prefactura)
			mesas.GET("/:id/prefactura/pdf", todos, mesasH.PrefacturaPDF)
			mesas.POST("/:id/cerrar", caja, mesasH.Cerrar)
			mesas.POST("/:id/liberar", caja, mesasH.Liberar)
		}

		grupos := v1.Group("/grupos-mesas")
		{
			grupos.GET("", todos, gruposH.Listar)
			grupos.GET("/:id", todos, gruposH.Obtener)
			grupos.POST("", todos, gruposH.Crear)
			grupos.POST("/:id/mesas", todos, gruposH.AgregarMesa)
			grupos.DELETE("/:id/mesas/:mesaId", todos, gruposH.RemoverMesa)
			grupos.GET("/:id/prefactura", todos, gruposH.Prefactura)
			grupos.POST("/:id/cerrar", caja, gruposH.Cerrar)
			grupos.POST("/:id/disolver", caja, gruposH.Disolver)
		}

		v1.PATCH("/ventas/:id/estado", todos, ventasH.CambiarEstado)

		v1.GET("/productos", todos, productosH.Listar)
		v1.POST("/productos", admin, productosH.Crear)
		v1.DELETE("/productos/:id", admin, productosH.Desactivar)

		v1.GET("/metodos-pago", todos, metodosH.Listar)
		metodos := v1.Group("/metodos-pago", admin)
		{
			metodos.POST("", metodosH.Crear)
			metodos.PUT("/:id", metodosH.Actualizar)
			metodos.DELETE("/:id", metodosH.Eliminar)
		}

		reservas := v1.Group("/reservas", todos)
		{
			reservas.GET("", reservasH.Listar)
			reservas.POST("", reservasH.Crear)
			reservas.POST("/:id/cancelar", reservasH.Cancelar)
		}

		v1.GET("/integridad", admin, integridadH.Verificar)
		v1.POST("/integridad/reconciliar", admin, integridadH.Reconciliar)
	}

	return r
}
