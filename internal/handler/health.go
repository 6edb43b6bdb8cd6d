package handler

import (
	"net/http"

	"github.com/controla/backend/internal/model"
	"github.com/gin-gonic/gin"
)

// Ping - liveness probe
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "controla monitoring API is running",
	})
}
