// Package response defines the JSON contract shared by every endpoint.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/pkg/database"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

// Envelope wraps every JSON body. Exactly one of Data or Error is set;
// Pagination and Meta ride along when the endpoint produces them.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Payout figures change as imports land, so responses are never cacheable at
// the HTTP layer. Redis handles the caching.
func markUncacheable(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON writes a success envelope. The optional trailing map becomes Meta.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	markUncacheable(c)
	env := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		env.Meta = meta[0]
	}
	c.JSON(status, env)
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Accepted writes a 202 envelope for work queued asynchronously.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil)
}

// Error normalises err into the envelope's error shape and writes it with the
// error's own HTTP status. Well-known postgres failure codes anywhere in the
// chain append an operator hint to the message.
func Error(c *gin.Context, err error) {
	markUncacheable(c)
	appErr := appErrors.FromError(err)
	if hint := database.FriendlyHint(err); hint != "" {
		appErr = appErrors.Clone(appErr, appErr.Message+" ("+hint+")")
	}
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent writes an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
