package main

import (
	"os"

	"github.com/small-frappuccino/guildsettings/pkg/app"
	"github.com/small-frappuccino/guildsettings/pkg/log"
)

func main() {
	if err := app.Run("guildsettings"); err != nil {
		log.ErrorLoggerRaw().Error("Fatal error", "err", err)
		os.Exit(1)
	}
}
