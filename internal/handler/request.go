package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/pkg/apierror"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apierror.BadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// pathParam returns a required route parameter.
func pathParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		return "", apierror.BadRequest(name + " is required")
	}
	return v, nil
}

// required rejects empty body fields.
func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierror.ValidationError("validation failed", apierror.FieldError{
			Field:   field,
			Message: "is required",
		})
	}
	return nil
}

// queryLimit parses ?limit= within [1, max], defaulting to def.
func queryLimit(r *http.Request, def, ceiling int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierror.BadRequest("invalid query").WithDetails(apierror.FieldError{
			Field:   "limit",
			Message: "must be a positive integer",
		})
	}
	if n > ceiling {
		n = ceiling
	}
	return n, nil
}

type transferFunc func(ctx context.Context, fromID, toID string, amount int64) (model.TransferReceipt, error)
