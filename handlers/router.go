package handlers

import (
	"net/http"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/middleware"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the collaborators behind the API. DB and Auth may be nil.
type Deps struct {
	Config *config.Config
	Store  *store.CSVStore
	Cache  *services.CacheService
	DB     *gorm.DB
	Auth   *services.AuthService
	Logger logrus.FieldLogger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.SetupCORS(d.Config.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Cabin prediction API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rows := NewRowsHandler(d.Store, d.Cache, d.DB, RowsOptions{
		Channel:  d.Config.Redis.Channel,
		CacheTTL: d.Config.Redis.CacheTTL(),
		Location: d.Config.Scheduler.Location,
	}, d.Logger)
	history := NewHistoryHandler(d.DB, d.Cache, d.Config.Redis.CacheTTL())

	data := router.Group("/data")
	data.GET("/", rows.Get)
	if d.Auth != nil {
		data.POST("/", middleware.RequireBearer(d.Auth, "writer"), rows.Post)
	} else {
		data.POST("/", rows.Post)
	}
	data.GET("/history", history.Get)
	data.GET("/ws", LiveRows(d.Cache, d.Auth, d.Config.Redis.Channel, d.Logger))

	return router
}
