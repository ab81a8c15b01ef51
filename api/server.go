package api

import (
	"github.com/gin-gonic/gin"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/store"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(coordinator *servicepipe.Coordinator, st *store.Store) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterJobRoutes(r, coordinator, st)
	RegisterHealthRoutes(r)
	return r
}
