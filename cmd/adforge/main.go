package main

import (
	"adforge/cmd/cmd"
	"adforge/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
