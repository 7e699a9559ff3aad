package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:8080",
}

// CORS allows the local dev frontends by default; CORS_ALLOW_ORIGINS
// (comma separated) replaces the list in deployed environments.
func CORS() gin.HandlerFunc {
	origins := defaultAllowedOrigins
	if raw := envutil.String("CORS_ALLOW_ORIGINS", ""); raw != "" {
		parsed := make([]string, 0, 4)
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				parsed = append(parsed, o)
			}
		}
		if len(parsed) > 0 {
			origins = parsed
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Trace-Id", "X-Request-Id"},
		AllowCredentials: true,
	})
}
