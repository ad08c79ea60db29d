package main

import (
	"os"

	"github.com/botforge-app/botforge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
