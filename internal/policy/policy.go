// Package policy enforces the --enable-commands allowlist. Agent harnesses
// pass a fixed set of command paths so a prompt-injected tool call cannot
// reach commands the operator never enabled.
package policy

import (
	"fmt"
	"strings"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
)

// CheckCommandAllowed reports whether the invoked command path is covered by
// the allowlist. Matching is segment-wise after lowercasing, and an entry
// covers its own subcommands, so "panels" enables "panels move" as well. An
// empty allowlist disables the policy.
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	path := splitPath(commandPath)
	for _, allowed := range allowlist {
		if covers(splitPath(allowed), path) {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("command %q blocked by --enable-commands policy", strings.Join(path, " ")))
}

func covers(allowed, path []string) bool {
	if len(allowed) == 0 || len(allowed) > len(path) {
		return false
	}
	for i, part := range allowed {
		if part != path[i] {
			return false
		}
	}
	return true
}

func splitPath(v string) []string {
	return strings.Fields(strings.ToLower(v))
}
