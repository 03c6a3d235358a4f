package rest

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const IdentityKey = "identity"

type Config struct {
	CORSOrigins string
	IdleTimeout time.Duration
}

// NewApp builds the fiber app with CORS, panic recovery and the routes. Preflight requests are
// answered with 204 by the CORS middleware before reaching any handler.
func NewApp(cfg Config, handler ServerInterface, identity *auth.IdentityProvider) *fiber.App {
	app := fiber.New(fiber.Config{
		IdleTimeout: cfg.IdleTimeout,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-Info, Apikey",
	}))

	var options FiberServerOptions
	if identity != nil && identity.Enabled() {
		options.Middlewares = append(options.Middlewares, RequireIdentity(identity))
	}
	RegisterHandlersWithOptions(app, handler, options)
	return app
}

// RequireIdentity guards the pipeline operations. Reads (certificate verification) stay public.
func RequireIdentity(identity *auth.IdentityProvider) MiddlewareFunc {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return c.Next()
		}
		id, err := identity.GetIdentity(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			slog.Warn("rejected request", "path", c.Path(), "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
		}
		c.Locals(IdentityKey, id)
		return c.Next()
	}
}

func NewConfig(origins string, idle time.Duration) Config {
	if strings.TrimSpace(origins) == "" {
		origins = "*"
	}
	return Config{CORSOrigins: origins, IdleTimeout: idle}
}
