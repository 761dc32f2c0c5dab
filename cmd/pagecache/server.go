package main

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-pagecache/adapters/demopage"
	pagecacherouter "github.com/goliatone/go-pagecache/adapters/router"
	"github.com/goliatone/go-router"
)

func buildServer(app *App) router.Server[*fiber.App] {
	return router.NewFiberAdapter(fiberAppInitializer(app))
}

func fiberAppInitializer(app *App) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName:               "go-pagecache",
			DisableStartupMessage: true,
		})

		fiberApp.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
			Output: app.Logger.Zerolog(),
		}))
		fiberApp.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,DELETE,OPTIONS",
			AllowHeaders: "Content-Type",
		}))

		return fiberApp
	}
}

// SetupRoutes registers the cache endpoint, the artifact directory and the
// optional demo page.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) error {
	publicPath := strings.TrimRight(a.Config.Server.PublicPath, "/")
	r.Static(publicPath, a.Config.Cache.ArtifactDir)

	if a.Config.Server.DemoPage {
		page, err := demopage.New("Page cache demo")
		if err != nil {
			return fmt.Errorf("demo page: %w", err)
		}
		r.Get("/", page.Handle)
	}

	handler := pagecacherouter.NewHandler(pagecacherouter.Config{
		Service:  a.Service,
		BasePath: a.Config.Server.Endpoint,
		Logger:   a.Logger.With("api"),
	})
	handler.RegisterRoutes(r)
	return nil
}
