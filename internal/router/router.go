package router

import (
	"net/http"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/config"
	"production_queue/internal/middleware"
	"production_queue/internal/production"
	"production_queue/internal/purchasing"
	"production_queue/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Store      *store.Store
	Purchasing *purchasing.Service
	Reconciler *purchasing.Reconciler
	Redis      *rd.Client
	Config     config.AppConfig
	Log        zerolog.Logger
}

func (d Deps) planOptions() production.Options {
	return production.WithWaste(d.Config.WasteFactor)
}

// New builds the engine with recovery, access logging and CORS, then
// registers every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: !allowsAnyOrigin(d.Config.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))
	Setup(r, d)
	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	secret := d.Config.JWTSecret
	adminOnly := middleware.RequireRole(secret, middleware.RoleAdmin)

	admin := r.Group("/api/admin", adminOnly)
	admin.POST("/get-product-group-ingredients",
		middleware.RedisRateLimit(d.Redis, d.Config.IngredientRateLimit, d.Config.IngredientRateWindow, "product_group_ingredients", d.Log),
		productGroupIngredients(d))

	ops := r.Group("/api/operations", middleware.RequireRole(secret, middleware.RoleAdmin, middleware.RoleOperations))
	ops.GET("/production-queue", productionQueue(d))
	ops.GET("/product-groups", productGroups(d))
	ops.GET("/product-groups/by-name/:name/ingredients", productGroupByName(d))
	ops.GET("/cumulative-requirements", cumulativeRequirements(d))

	ops.POST("/purchase-orders", createPurchaseOrder(d))
	ops.GET("/purchase-orders/created", createdPurchaseOrders(d))
	ops.POST("/reconcile", reconcile(d))

	ops.PUT("/orders/:id/status", updateOrderStatus(d))
	ops.POST("/batches", createBatch(d))
	ops.GET("/packaging/alerts", packagingAlerts(d))

	ops.GET("/recipes/:product_id", getRecipe(d))
	ops.PUT("/recipes/:product_id", adminOnly, replaceRecipe(d))
}

// fail writes {error, details?} with the status of err's kind.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	ae := apperr.From(err)
	status := apperr.HTTPStatus(ae.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", string(ae.Kind)).Str("path", c.FullPath()).Msg("request failed")
	}
	msg := ae.UserMessage
	if msg == "" {
		msg = apperr.UserMessage(ae.Kind)
	}
	body := gin.H{"error": msg}
	if ae.Details != nil {
		body["details"] = ae.Details
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, log zerolog.Logger, err error) {
	fail(c, log, apperr.New(apperr.Validation, "invalid request payload").
		WithUserMessage("Invalid request payload").
		WithDetails(err.Error()))
}
