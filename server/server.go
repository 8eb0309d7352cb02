package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/esm-dev/noderesolve"
	"github.com/esm-dev/noderesolve/config"
	"github.com/ije/gox/log"
	"github.com/ije/gox/set"
	"github.com/ije/rex"
)

// Serve serves the resolve API until the process is signaled to stop.
func Serve(cfg *config.Config, version string) error {
	logger, err := log.New(fmt.Sprintf("file:%s?buffer=32k&fileDateFormat=20060102", path.Join(cfg.LogDir, "server.log")))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLevelByName(cfg.LogLevel)

	accessLogger, err := log.New(fmt.Sprintf("file:%s?buffer=32k&fileDateFormat=20060102", path.Join(cfg.LogDir, "access.log")))
	if err != nil {
		return fmt.Errorf("failed to initialize access logger: %w", err)
	}
	accessLogger.SetQuite(true)

	options, err := cfg.Options()
	if err != nil {
		return err
	}
	options.Logger = logger
	resolver, err := noderesolve.New(options)
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}
	defer resolver.Close()

	rex.Use(
		rex.Header("Server", "noderesolve"),
		cors(cfg.CorsAllowOrigins),
		rex.Logger(logger),
		rex.Optional(rex.AccessLogger(accessLogger), cfg.AccessLog),
		rex.Compress(),
		routes(resolver, cfg, version),
	)

	C := rex.Serve(rex.ServerConfig{
		Port: cfg.Port,
	})
	logger.Infof("Server is ready on http://localhost:%d", cfg.Port)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP)
	select {
	case <-c:
	case err = <-C:
		logger.Error(err)
	}

	logger.FlushBuffer()
	accessLogger.FlushBuffer()
	return err
}

func cors(allowOrigins []string) rex.Handle {
	allowList := set.NewReadOnly(allowOrigins...)
	return func(ctx *rex.Context) any {
		origin := ctx.R.Header.Get("Origin")
		isOptionsMethod := ctx.R.Method == "OPTIONS"
		h := ctx.W.Header()
		if allowList.Len() > 0 {
			if origin != "" {
				if !allowList.Has(origin) {
					return rex.Status(403, "forbidden")
				}
				setCorsHeaders(h, isOptionsMethod, origin)
			} else if isOptionsMethod {
				// not a preflight request
				return rex.Status(405, "method not allowed")
			}
			h.Add("Vary", "Origin")
		} else {
			setCorsHeaders(h, isOptionsMethod, "*")
		}
		if isOptionsMethod {
			return rex.NoContent()
		}
		return ctx.Next()
	}
}

func setCorsHeaders(h http.Header, isOptionsMethod bool, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	if isOptionsMethod {
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Max-Age", "86400")
	}
}
