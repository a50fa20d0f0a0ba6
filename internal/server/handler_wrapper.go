// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/bibliodb/internal/errors"
	"github.com/maruel/bibliodb/internal/models"
	"github.com/maruel/bibliodb/internal/server/handlers"
)

// statusCoder is implemented by responses that are not 200 OK. A 204 response
// has no body.
type statusCoder interface {
	StatusCode() int
}

// affecter is implemented by write responses.
type affecter interface {
	AffectedRecords() int
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// commitIfMutating records the data file in history after a mutating request.
//
// It runs whatever the handler outcome. When the file is unchanged the commit
// is a no-op.
func commitIfMutating(ctx context.Context, r *http.Request, cfg *Config) {
	if cfg.History == nil || !isMutating(r.Method) {
		return
	}
	msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
	if err := cfg.History.Commit(ctx, cfg.Adapter.Store().Path(), msg); err != nil {
		slog.ErrorContext(ctx, "Failed to commit data file", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is marshalled as the response.
// Path parameters are extracted into struct fields tagged with `path:"name"`,
// query parameters into fields tagged with `query:"name"`.
// *In must implement models.Validatable.
//
// Example:
//
//	type EntityRequest struct {
//	    Collection string `path:"kind"`
//	    ID         string `path:"id"`
//	}
//
//	func (h *EntityHandler) Get(ctx context.Context, req *EntityRequest) (*EntityResponse, error)
func Wrap[In any, PtrIn interface {
	*In
	models.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg.MaxRequestBodyBytes) {
			return
		}
		populatePathParams(r, input)
		populateQueryParams(r, input)
		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err, http.StatusBadRequest, apierrors.ErrValidationFailed)
			return
		}
		output, err := fn(ctx, PtrIn(input))
		commitIfMutating(ctx, r, cfg)
		if err != nil {
			writeError(ctx, w, err, http.StatusInternalServerError, apierrors.ErrInternal)
			return
		}
		writeJSONResponse(ctx, w, output, isMutating(r.Method))
	})
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, limit int64) bool {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apiErr := apierrors.PayloadTooLarge(maxBytesErr.Limit)
			handlers.WriteErrorCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		handlers.WriteErrorCode(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Failed to read request body", nil)
		return false
	}
	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
			handlers.WriteErrorCode(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Invalid request body", map[string]any{"reason": err.Error()})
			return false
		}
		if _, err := d.Token(); !errors.Is(err, io.EOF) {
			slog.WarnContext(ctx, "Trailing data after request body")
			handlers.WriteErrorCode(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Invalid request body", map[string]any{"reason": "unexpected data after JSON body"})
			return false
		}
	}
	return true
}

// writeJSONResponse writes output as JSON with the status it reports. Write
// responses also report how many records they touched.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, write bool) {
	statusCode := http.StatusOK
	if sc, ok := any(output).(statusCoder); ok {
		statusCode = sc.StatusCode()
	}
	if a, ok := any(output).(affecter); ok && write {
		w.Header().Set("X-Affected-Records", strconv.Itoa(a.AffectedRecords()))
	}
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// writeError writes err, using its own status and code when it carries them.
func writeError(ctx context.Context, w http.ResponseWriter, err error, statusCode int, code apierrors.ErrorCode) {
	var details map[string]any
	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		code = ews.Code()
		details = ews.Details()
	}
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", code)
	} else {
		slog.WarnContext(ctx, "Request error", "err", err, "statusCode", statusCode, "code", code)
	}
	handlers.WriteErrorCode(w, statusCode, code, err.Error(), details)
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(v)
		case reflect.Int:
			// Unparsable numbers become -1 so that Validate rejects them.
			n, err := strconv.Atoi(v)
			if err != nil {
				n = -1
			}
			fieldVal.SetInt(int64(n))
		default:
			if u, ok := fieldVal.Addr().Interface().(encoding.TextUnmarshaler); ok {
				_ = u.UnmarshalText([]byte(v))
			}
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}
