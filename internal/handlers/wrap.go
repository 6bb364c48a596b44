package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validate checks document structs against their model tags before a write.
var validate = validator.New()

// HandlerFunc is a request handler that reports failure through its return
// value instead of writing an error response itself.
type HandlerFunc func(c *gin.Context) error

// wrap adapts a HandlerFunc for gin: a returned error is pushed into the
// context exactly once and handled by the error middleware.
func wrap(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

func respond(c *gin.Context, code int, name string, doc interface{}) {
	c.JSON(code, gin.H{
		"status": "success",
		"data":   gin.H{name: doc},
	})
}

func respondList(c *gin.Context, name string, docs interface{}, count int) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": count,
		"data":    gin.H{name: docs},
	})
}
