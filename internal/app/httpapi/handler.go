package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/nft_platform/internal/app"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/internal/httputil"
	"github.com/R3E-Network/nft_platform/internal/middleware"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, errors.NotFound("route", r.URL.Path))
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorBody{Error: httputil.ErrorPayload{
		Code:    errors.CodeBadRequest,
		Message: "Method not allowed",
	}})
}

// respond writes v, or the error when err is set.
func (h *handler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, v)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if se := errors.GetServiceError(err); se == nil || se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithError(err).
			WithField("trace_id", middleware.TraceID(r.Context())).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	httputil.WriteError(w, err)
}

// decode reads the JSON body and reports whether the handler may continue.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func pathVar(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}

func userID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestf("Invalid %s: %q", name, raw)
	}
	return v, nil
}

func pageFrom(r *http.Request) (stats.Page, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return stats.Page{}, err
	}
	return stats.Page{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")), Limit: limit}, nil
}
