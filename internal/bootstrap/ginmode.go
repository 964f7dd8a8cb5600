package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode puts Gin in release mode for production deployments; every
// other environment keeps the default debug output.
func SetGinMode(env string) {
	switch env {
	case "production", "prod":
		gin.SetMode(gin.ReleaseMode)
	}
}
