package main

import (
	"fmt"
	"os"

	"github.com/openshelf/bibliograph-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bibliograph: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	addr := ":" + application.Cfg.Port
	application.Log.Info("Server listening", "addr", addr)
	if err := application.Run(addr); err != nil {
		application.Log.Error("Server failed", "error", err)
		application.Close()
		os.Exit(1)
	}
}
