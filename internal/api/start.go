package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/workbenchdata/twitter-fetch/internal/config"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
	"github.com/workbenchdata/twitter-fetch/internal/store"
	"github.com/workbenchdata/twitter-fetch/pkg/client"
)

// Start brings up the HTTP surface and blocks until ctx is cancelled or the
// listener fails.
func Start(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	twitterClient, err := newTwitterClient(cfg)
	if err != nil {
		return err
	}
	engine := fetcher.NewEngine(twitterClient, cfg.MaxRows)
	server := NewServer(engine, st)

	// Echo instance
	e := echo.New()
	e.HideBanner = true

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(APIKeyAuthMiddleware(cfg.APIKey))

	e.POST("/fetch", server.handleFetch)
	e.GET("/dataset/:id", server.handleGetDataset)
	e.DELETE("/dataset/:id", server.handleDeleteDataset)

	e.GET(HealthCheckPath, func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET(ReadinessCheckPath, func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	if cfg.EnablePprof {
		logrus.Info("Enabling pprof endpoints")
		pprof.Register(e)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("Error shutting down server: %v", err)
		}
	}()

	logrus.Info("Listening on ", cfg.ListenAddress)
	if err := e.Start(cfg.ListenAddress); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newTwitterClient(cfg config.Config) (*client.TwitterClient, error) {
	opts := []client.Option{
		client.Timeout(cfg.RequestTimeout),
		client.RequestsPerSecond(cfg.RequestsPerSec),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, client.BaseURL(cfg.BaseURL))
	}
	return client.NewTwitterClient(client.NewHeaderSigner(cfg.Authorization), opts...)
}
