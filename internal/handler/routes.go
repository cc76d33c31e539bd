package handler

import "github.com/gin-gonic/gin"

// Handlers groups everything the router mounts.
type Handlers struct {
	Roster  *RosterHandler
	Exports *ExportHandler
	Metrics *MetricsHandler
}

// Register mounts the API under prefix and the operational endpoints at the root.
func Register(r *gin.Engine, prefix string, h Handlers) {
	// Rolls may contain '/', sent as %2F. Match on the escaped path and unescape params.
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/metrics", h.Metrics.Snapshot)

	students := api.Group("/students")
	students.GET("", h.Roster.List)
	students.POST("", h.Roster.Save)
	students.GET("/:roll", h.Roster.Get)
	students.DELETE("/:roll", h.Roster.Delete)

	session := api.Group("/session")
	session.GET("", h.Roster.Session)
	session.POST("/edit/:roll", h.Roster.StartEdit)
	session.DELETE("/edit", h.Roster.CancelEdit)
	session.POST("/validate", h.Roster.Validate)
	session.PUT("/search", h.Roster.Search)
	session.PUT("/filters/:field", h.Roster.SetFilter)
	session.DELETE("/filters", h.Roster.ClearFilters)
	session.POST("/sort", h.Roster.Sort)

	if h.Exports != nil {
		api.GET("/exports/students", h.Exports.Students)
	}
}
