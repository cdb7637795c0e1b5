package ginserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	domainbooking "eventbook/internal/domain/booking"
)

const maxBodyBytes = 1 << 20

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// bindStrict decodes the JSON body into dst. Unknown fields, malformed JSON
// and oversized bodies are validation errors.
func bindStrict(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %s", domainbooking.ErrValidation, describeDecodeError(err))
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %s must be %s", typeErr.Field, typeErr.Type)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "malformed JSON"
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "body too large"
	}
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return err.Error()
}
