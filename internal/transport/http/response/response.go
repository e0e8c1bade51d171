// Package response defines the JSON envelope shared by every endpoint:
// {"ok":true,"data":...} on success, {"ok":false,"error":"..."} on failure.
// The /api/ask endpoint is the one exception and returns its answer payload
// bare, errors included.
package response

import "github.com/gin-gonic/gin"

type envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, envelope{OK: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, envelope{OK: true, Data: data})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, envelope{OK: false, Error: message})
}
