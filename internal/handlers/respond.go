package handlers

import (
	"civicreport/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requestTimeout bounds every database-touching handler operation.
const requestTimeoutSeconds = 10

// respondError translates a service error into the JSON error envelope.
// Internal causes are logged server-side and never leak to the client.
func respondError(c *gin.Context, err error) {
	if errs.KindOf(err) == errs.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	c.JSON(errs.HTTPStatus(err), gin.H{
		"error": errs.Message(err),
	})
}
