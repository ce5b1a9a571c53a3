package main

import (
	"github.com/aretw0/storyline/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [story]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Storyline as an MCP Server so AI agents can play the story through tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		watch, _ := cmd.Flags().GetBool("watch")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		return cli.RunMCP(sc, cfg, cli.MCPOptions{
			Transport: transport,
			Port:      port,
			Watch:     watch,
			Version:   version(),
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 0, "Port to listen on (only for SSE, defaults to server.mcp_port)")
	mcpCmd.Flags().BoolP("watch", "w", false, "Reload the story when the file changes")
}
