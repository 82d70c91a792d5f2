package server

import (
	"context"

	"github.com/maroonlid/Tutunovka-HSE/internal/auth"
	"github.com/maroonlid/Tutunovka-HSE/internal/complaint"
	"github.com/maroonlid/Tutunovka-HSE/internal/config"
	"github.com/maroonlid/Tutunovka-HSE/internal/geo"
	"github.com/maroonlid/Tutunovka-HSE/internal/link"
	"github.com/maroonlid/Tutunovka-HSE/internal/route"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	routeSvc := route.NewService(s.DB)
	geoClient := geo.NewClient(s.Cfg.YandexMapsKey, s.Redis)
	isAdmin := func(ctx context.Context, userID string) (bool, error) {
		user, err := authSvc.Profile(ctx, userID)
		if err != nil {
			return false, err
		}
		return user.IsAdmin, nil
	}

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware)
	route.RegisterRoutes(s.App.Group("/routes"), routeSvc, geoClient, jwtMiddleware)
	route.RegisterPublicRoutes(s.App.Group("/public"), routeSvc, geoClient, jwtMiddleware)
	complaint.RegisterRoutes(s.App.Group("/complaints"), complaint.NewService(s.DB), isAdmin, jwtMiddleware)
	link.RegisterRoutes(s.App.Group("/link"), link.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	geo.RegisterRoutes(s.App.Group("/maps"), geoClient)
}
