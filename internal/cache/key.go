package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key builds a deterministic cache key from a tool name and its normalized
// parameters. Parameters are sorted by name; values are formatted with %v, so
// callers normalize (round, trim, lower-case) before calling.
func Key(tool string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(tool)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%v", name, params[name])
	}
	return b.String()
}
