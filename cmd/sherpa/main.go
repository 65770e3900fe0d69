package main

import (
	"os"

	"github.com/bryfeng/sherpa-front-sub002/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
