package main

import (
	stdLog "log"
	"os"
	"time"

	"github.com/Astemirdum/library-cms/library/app"
	"github.com/Astemirdum/library-cms/library/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
