package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/components/admin"
	"github.com/sweetshop/console/internal/components/auth"
	"github.com/sweetshop/console/internal/components/shop"
	"github.com/sweetshop/console/internal/server"
	"github.com/sweetshop/console/internal/shared/config"
	"github.com/sweetshop/console/internal/shared/logging"
	"github.com/sweetshop/console/internal/shared/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env found; using environment defaults.")
	}

	fx.New(
		fx.Provide(
			config.NewConfig,
			logging.NewLogger,
			backend.NewClient,
			session.NewStore,
			server.NewServer,
			server.NewHealthSrvc,
			server.NewHealthHandler,
			auth.NewService,
			fx.Annotate(auth.NewRouter, fx.ResultTags(`name:"authRouter"`)),
			admin.NewService,
			fx.Annotate(admin.NewRouter, fx.ResultTags(`name:"adminRouter"`)),
			shop.NewService,
			fx.Annotate(shop.NewRouter, fx.ResultTags(`name:"shopRouter"`)),
		),
		fx.Invoke(server.Register),
	).Run()
}
