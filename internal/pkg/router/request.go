package router

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/0xmonas/cobbee/internal/pkg/goerror"
)

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetParamInt64 reads a path parameter as int64.
func (r *Request) GetParamInt64(key string) (int64, error) {
	value, err := strconv.ParseInt(r.GetParam(key), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat("param must be an integer value")
	}
	return value, nil
}

// GetQuery reads a trimmed query parameter.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ClientIP returns the caller address as normalized by the IP middleware.
func (r *Request) ClientIP() string {
	return r.RemoteAddr
}

// DecodeBody decodes the JSON body into dst, rejecting unknown fields and
// trailing content.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return goerror.NewInvalidFormat()
	}

	return nil
}
