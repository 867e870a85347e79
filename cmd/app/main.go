package main

import (
	"github.com/CarciofiVolanti/movie-tally-time/internal/app"
	"github.com/CarciofiVolanti/movie-tally-time/internal/config"
)

func main() {
	app.Go(config.Load())
}
