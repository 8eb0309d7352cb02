package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/esm-dev/noderesolve"
	"github.com/esm-dev/noderesolve/config"
	"github.com/esm-dev/noderesolve/internal/mime"
	"github.com/ije/rex"
)

const ccNoStore = "private, no-store, no-cache, must-revalidate"

func routes(resolver *noderesolve.Resolver, cfg *config.Config, version string) rex.Handle {
	startTime := time.Now()

	return func(ctx *rex.Context) any {
		if ctx.R.Method != "GET" && ctx.R.Method != "HEAD" {
			return rex.Status(http.StatusMethodNotAllowed, "method not allowed")
		}
		switch ctx.Pathname() {
		case "/resolve":
			status, body := resolveRequest(resolver, cfg, ctx.Query())
			ctx.SetHeader("Cache-Control", ccNoStore)
			return rex.Status(status, body)

		case "/format":
			status, body := formatRequest(resolver, ctx.Query())
			ctx.SetHeader("Cache-Control", ccNoStore)
			return rex.Status(status, body)

		case "/status.json":
			ctx.SetHeader("Cache-Control", ccNoStore)
			return map[string]any{
				"version":    version,
				"uptime":     time.Since(startTime).String(),
				"mode":       cfg.Mode,
				"conditions": cfg.Conditions,
				"builtins":   len(resolver.Builtins()),
			}

		default:
			return rex.Status(http.StatusNotFound, "not found")
		}
	}
}

// resolveRequest handles "/resolve?specifier=...&referrer=...". The
// optional "mode" and comma separated "conditions" override the config.
func resolveRequest(resolver *noderesolve.Resolver, cfg *config.Config, query url.Values) (int, map[string]any) {
	specifier := query.Get("specifier")
	referrer := query.Get("referrer")
	if !query.Has("specifier") || referrer == "" {
		return http.StatusBadRequest, errorBody("ERR_INVALID_ARG_VALUE", "the 'specifier' and 'referrer' query parameters are required", "")
	}

	mode := cfg.Mode
	if v := query.Get("mode"); v != "" {
		if v != config.ModeImport && v != config.ModeRequire {
			return http.StatusBadRequest, errorBody("ERR_INVALID_ARG_VALUE", "invalid mode '"+v+"'", "")
		}
		mode = v
	}
	var conditions []string
	if query.Has("conditions") {
		conditions = []string{}
		for _, p := range strings.Split(query.Get("conditions"), ",") {
			if p = strings.TrimSpace(p); p != "" {
				conditions = append(conditions, p)
			}
		}
	} else if mode == cfg.Mode {
		conditions = cfg.Conditions
	}

	var res noderesolve.Resolution
	var err error
	if mode == config.ModeRequire {
		var u *url.URL
		u, err = resolver.ResolveRequire(specifier, referrer, conditions)
		if err == nil {
			res.URL = u
			res.Format, _, err = resolver.ProbeFormat(u)
		}
	} else {
		if strings.HasPrefix(referrer, "/") {
			referrer = noderesolve.PathToFileURL(referrer).String()
		}
		res, err = resolver.ResolveImport(specifier, referrer, conditions)
	}
	if err != nil {
		return errorResponse(err)
	}
	body := map[string]any{
		"url":    res.URL.String(),
		"format": string(res.Format),
	}
	if res.URL.Scheme == "file" {
		if p, err := noderesolve.FileURLToPath(res.URL); err == nil {
			body["path"] = p
			if contentType := mime.GetContentType(p); contentType != "" {
				body["contentType"] = contentType
			}
		}
	}
	return http.StatusOK, body
}

// formatRequest handles "/format?url=...".
func formatRequest(resolver *noderesolve.Resolver, query url.Values) (int, map[string]any) {
	u, err := url.Parse(query.Get("url"))
	if err != nil || u.Scheme == "" {
		return http.StatusBadRequest, errorBody("ERR_INVALID_ARG_VALUE", "the 'url' query parameter must be an absolute URL", "")
	}
	f, err := resolver.ClassifyFormat(u)
	if err != nil {
		return errorResponse(err)
	}
	return http.StatusOK, map[string]any{
		"url":    u.String(),
		"format": string(f),
	}
}

func errorResponse(err error) (int, map[string]any) {
	var e *noderesolve.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, errorBody("", err.Error(), "")
	}
	return statusOf(e.Code), errorBody(string(e.Code), e.Message, e.URL)
}

func statusOf(code noderesolve.ErrorCode) int {
	switch code {
	case "ERR_MODULE_NOT_FOUND", "ERR_PACKAGE_PATH_NOT_EXPORTED", "ERR_PACKAGE_IMPORT_NOT_DEFINED":
		return http.StatusNotFound
	case "ERR_INVALID_MODULE_SPECIFIER", "ERR_INVALID_ARG_VALUE", "ERR_INVALID_URL_SCHEME", "ERR_INVALID_FILE_URL_HOST", "ERR_INVALID_FILE_URL_PATH":
		return http.StatusBadRequest
	case "ERR_INVALID_PACKAGE_CONFIG", "ERR_INVALID_PACKAGE_TARGET":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorBody(code string, message string, errorURL string) map[string]any {
	e := map[string]any{"message": message}
	if code != "" {
		e["code"] = code
	}
	if errorURL != "" {
		e["url"] = errorURL
	}
	return map[string]any{"error": e}
}
