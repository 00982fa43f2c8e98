package main

import (
	"rivalscope/cmd/handlers"
	"rivalscope/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
