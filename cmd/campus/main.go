package main

import (
	"os"

	"horse.fit/campus/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
