// Command divvy-mcp serves the Divvy MCP tools over stdio for desktop clients.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/divvy/internal/app"
)

func main() {
	a, err := app.NewApp(os.Getenv("DIVVY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Logger.Info().Msg("Serving MCP over stdio")
	if err := server.ServeStdio(a.MCPServer); err != nil {
		a.Logger.Error().Err(err).Msg("MCP stdio server stopped")
		a.Close()
		os.Exit(1)
	}
}
