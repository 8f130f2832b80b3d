package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
	FieldID   string `json:"fieldId,omitempty"`
}

func statusFor(kind sigerr.Kind) int {
	switch kind {
	case sigerr.KindEmptyInput, sigerr.KindMissingSignerInfo, sigerr.KindInvalidRecord:
		return http.StatusBadRequest
	case sigerr.KindNotFound:
		return http.StatusNotFound
	case sigerr.KindInvalidTransition, sigerr.KindNotComplete:
		return http.StatusConflict
	case sigerr.KindGeometryNotReady, sigerr.KindFieldPageOutOfRange,
		sigerr.KindSourceDocumentInvalid, sigerr.KindImageEmbedFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{
			ErrorKind: "RequestTooLarge",
			Message:   err.Error(),
		})
		return
	}

	kind := sigerr.KindOf(err)
	resp := errorResponse{ErrorKind: kind.String(), Message: err.Error()}
	var serr *sigerr.Error
	if errors.As(err, &serr) {
		resp.FieldID = serr.FieldID
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		resp.Message = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// bind decodes the JSON body into v.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, err)
			return false
		}
		s.fail(c, sigerr.Wrap(sigerr.KindInvalidRecord, err, "malformed request body"))
		return false
	}
	return true
}
