package codex

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	harness "github.com/bearlyai/agentharness"
)

// sanitizeServerName replaces hyphens with underscores (the canonical
// example: "my-cool-server" -> "my_cool_server"). No other character is
// changed.
func sanitizeServerName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// tokenEnvVar names the env var a bearer token is redirected through, for
// server name upper-cased per spec §4.3's example
// ("__HARNESS_MCP_TOKEN_SRV").
func tokenEnvVar(sanitizedName string) string {
	return "__HARNESS_MCP_TOKEN_" + strings.ToUpper(sanitizedName)
}

// escapeTOMLString escapes backslash and double-quote, per spec §4.3's
// TOML value escaping rule, and wraps the result in double quotes.
func escapeTOMLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// buildMCPOverrides projects servers into the Codex `-c key=value`
// sequence spec §4.3 describes, plus an environment overlay carrying any
// redirected bearer tokens. The returned slice is deterministically
// ordered (servers sorted by name; within a server, fields in a fixed
// order with env and header keys sorted) so
// argv is reproducible across calls with the same input.
func buildMCPOverrides(servers map[string]harness.MCPServerConfig) (args []string, envOverlay map[string]string) {
	envOverlay = map[string]string{}
	if len(servers) == 0 {
		return nil, envOverlay
	}

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := servers[name]
		key := sanitizeServerName(name)

		switch s.Transport {
		case harness.MCPTransportHTTP:
			args = append(args, kv(key, "type", escapeTOMLString("http")))
			args = append(args, kv(key, "url", escapeTOMLString(s.URL)))
			args = append(args, httpHeaderOverrides(key, s.Headers, envOverlay)...)
		default:
			args = append(args, kv(key, "type", escapeTOMLString("stdio")))
			args = append(args, kv(key, "command", escapeTOMLString(s.Command)))
			if len(s.Args) > 0 {
				args = append(args, kv(key, "args", jsonArray(s.Args)))
			}
			envKeys := sortedKeys(s.Env)
			for _, ek := range envKeys {
				args = append(args, kv(key+".env", ek, escapeTOMLString(s.Env[ek])))
			}
		}
	}
	return args, envOverlay
}

// httpHeaderOverrides emits one override per header, redirecting a Bearer
// Authorization value through an environment variable instead of writing
// the secret into argv, per spec §4.3/E5.
func httpHeaderOverrides(key string, headers map[string]string, envOverlay map[string]string) []string {
	var out []string
	for _, name := range sortedKeys(headers) {
		value := headers[name]
		if strings.EqualFold(name, "Authorization") {
			if m := bearerPattern.FindStringSubmatch(value); m != nil {
				envVar := tokenEnvVar(key)
				envOverlay[envVar] = m[1]
				out = append(out, kv(key, "bearer_token_env_var", escapeTOMLString(envVar)))
				continue
			}
		}
		headerKey := strings.ReplaceAll(name, "-", "_")
		out = append(out, kv(key+".http_headers", headerKey, escapeTOMLString(value)))
	}
	return out
}

// kv formats one dotted-key override as "<prefix>.<field>=<value>"; the
// caller adds the preceding "-c" argument.
func kv(prefix, field, value string) string {
	return prefix + "." + field + "=" + value
}

func jsonArray(items []string) string {
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
