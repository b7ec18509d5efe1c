// Package envutil merges and validates the environment overlay every
// adapter builds on top of the inherited process environment, per spec
// §4.1 point 2 ("merged env {inherited ∪ overlay}, overlay wins").
//
// The retrieved teacher excerpt calls agentrun.MergeEnv/agentrun.ValidateEnv
// from engine/cli/engine.go without shipping their definitions; this
// package reconstructs the same contract from those call sites and from
// the streamer's merged-env requirement.
package envutil

import (
	"fmt"
	"os"
	"strings"
)

// Merge returns the process's inherited environment (os.Environ) with
// overlay applied on top, in "KEY=VALUE" form suitable for exec.Cmd.Env.
// Overlay entries win over an inherited variable of the same name. Each
// call starts again from os.Environ, so an overlay passed to an earlier
// call is not carried over; layered overlays (adapter env, then caller
// query.Env) are combined into one map first, as the adapters' Build
// methods do.
func Merge(overlay map[string]string) []string {
	base := os.Environ()
	merged := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// Validate rejects overlay entries that cannot be represented as a POSIX
// environment variable assignment: an empty key, a key containing '=', or
// a key or value containing a NUL byte.
func Validate(overlay map[string]string) error {
	for k, v := range overlay {
		if k == "" {
			return fmt.Errorf("envutil: empty environment variable name")
		}
		if strings.ContainsRune(k, '=') {
			return fmt.Errorf("envutil: invalid environment variable name %q", k)
		}
		if strings.ContainsRune(k, 0) || strings.ContainsRune(v, 0) {
			return fmt.Errorf("envutil: environment variable %q contains a NUL byte", k)
		}
	}
	return nil
}
