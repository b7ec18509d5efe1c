package claude

import (
	"encoding/json"
	"fmt"
	"os"

	harness "github.com/bearlyai/agentharness"
)

// mcpConfigDoc is the {mcpServers: {name: entry}} document written to a
// temp file and passed via --mcp-config, spec §4.2/§6.
type mcpConfigDoc struct {
	MCPServers map[string]mcpConfigEntry `json:"mcpServers"`
}

type mcpConfigEntry struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// writeMCPConfig projects q's MCP map to JSON and writes it to an OS temp
// file, grounded on SamSaffron-term-llm's createHTTPMCPConfig pattern
// (os.CreateTemp + a document the caller is responsible for removing).
func writeMCPConfig(servers map[string]harness.MCPServerConfig) (string, error) {
	doc := mcpConfigDoc{MCPServers: make(map[string]mcpConfigEntry, len(servers))}
	for name, s := range servers {
		entry := mcpConfigEntry{}
		switch s.Transport {
		case harness.MCPTransportHTTP:
			entry.Type = "http"
			entry.URL = s.URL
			if len(s.Headers) > 0 {
				entry.Headers = s.Headers
			}
		default:
			entry.Command = s.Command
			if len(s.Args) > 0 {
				entry.Args = s.Args
			}
			if len(s.Env) > 0 {
				entry.Env = s.Env
			}
			entry.Cwd = s.Dir
		}
		doc.MCPServers[name] = entry
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("claude: marshal mcp config: %w", err)
	}

	f, err := os.CreateTemp("", "harness-claude-mcp-*.json")
	if err != nil {
		return "", fmt.Errorf("claude: create mcp config temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("claude: write mcp config: %w", err)
	}
	return f.Name(), nil
}
