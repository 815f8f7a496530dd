package httpmiddleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser dashboards on origins to call the API. A "*" entry
// opens the API to every origin without credentials.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}
