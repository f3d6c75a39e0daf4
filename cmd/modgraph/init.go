package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// modgraphMCPEntry is the MCP server configuration for the modgraph binary.
var modgraphMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "modgraph",
  "args": ["serve", "--mcp-stdio"]
}`)

// runInit registers the modgraph MCP server in the project's .mcp.json.
func runInit(args []string) error {
	var projectRoot string
	var force bool

	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.StringVar(&projectRoot, "project-root", ".", "path to the target project")
	fs.BoolVar(&force, "force", false, "overwrite an existing modgraph entry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	return mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force)
}

// mergeMCPConfig creates or merges the modgraph entry into .mcp.json.
func mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["modgraph"]; exists && !force {
		fmt.Fprintf(stdout, "  skipped .mcp.json modgraph entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["modgraph"] = modgraphMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(stdout, "  %s .mcp.json with modgraph MCP server\n", action)
	return nil
}
