// cmd/memorable/main.go
package main

import (
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init(false)

	// Execute CLI
	cli.Execute()
}
