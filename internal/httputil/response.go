// Package httputil provides JSON request/response helpers shared by handlers
// and middleware.
package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	svcerrors "github.com/R3E-Network/nodemap_service/internal/errors"
	"github.com/R3E-Network/nodemap_service/internal/logging"
)

// MaxBodyBytes bounds request bodies. Graph payloads are the largest inputs.
const MaxBodyBytes = 8 << 20

// InvalidInputMessage is returned for empty or unparsable JSON bodies.
const InvalidInputMessage = "Invalid input: No data provided or invalid JSON"

// BodyTooLargeMessage is returned when a body exceeds MaxBodyBytes.
const BodyTooLargeMessage = "Request body too large"

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the {"error": message} body used for every failure.
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteError maps err to its status and public message. Errors outside the
// service taxonomy become a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	serviceErr := svcerrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = svcerrors.Internal("Internal server error", err)
	}
	WriteErrorResponse(w, serviceErr.HTTPStatus, serviceErr.Message)
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	WriteErrorResponse(w, http.StatusUnauthorized, message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusNotFound, message)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusInternalServerError, message)
}

// DecodeJSON reads the request body into dst. On failure it writes an error
// response and returns false. Bodies carrying no data (empty, null, {}, [],
// "", 0, false) are rejected with a 400; oversized bodies get a 413.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		BadRequest(w, InvalidInputMessage)
		return false
	}
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, BodyTooLargeMessage)
			return false
		}
		BadRequest(w, InvalidInputMessage)
		return false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || noData(body) {
		BadRequest(w, InvalidInputMessage)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		BadRequest(w, InvalidInputMessage)
		return false
	}
	return true
}

// noData reports whether a valid JSON document is an empty value.
func noData(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	doc := gjson.ParseBytes(body)
	switch doc.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return doc.Num == 0
	case gjson.String:
		return doc.Str == ""
	case gjson.JSON:
		if doc.IsArray() {
			return len(doc.Array()) == 0
		}
		return len(doc.Map()) == 0
	}
	return false
}

// RequireUserID returns the authenticated user id, writing a 401 if absent.
func RequireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(logging.GetUserID(r.Context()), 10, 64)
	if err != nil || userID <= 0 {
		Unauthorized(w, "Missing Authorization Header")
		return 0, false
	}
	return userID, true
}
