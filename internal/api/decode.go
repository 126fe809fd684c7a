package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Decode reads a JSON body into dst and validates its `validate` tags
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", service.ErrInvalidInput)
	}
	return validate.Struct(dst)
}
