package main

import (
	"context"

	"github.com/reelapp/reel-backend/config"
	"github.com/reelapp/reel-backend/models"
	"github.com/reelapp/reel-backend/routes"
	"github.com/reelapp/reel-backend/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	shutdownTracing, err := utils.InitTracing(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("init tracing: %v", err)
	}

	db := config.InitDatabase(models.All()...)

	r := routes.SetupRouter(db, cfg)

	srv := utils.NewServer(":"+cfg.AppPort, r, utils.DEFAULT_READ_TIMEOUT, utils.DEFAULT_WRITE_TIMEOUT)
	srv.OnShutdown(shutdownTracing)
	srv.OnShutdown(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if rc := utils.GetRedis(); rc != nil {
		srv.OnShutdown(func(context.Context) error { return rc.Close() })
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
