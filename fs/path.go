package fs

import "strings"

// SplitPath splits an absolute path into its parent directory and leaf
// name: the last "/" divides the two. A path with no separator before its
// only segment ("/a") yields parent "/".
func SplitPath(full string) (parent, leaf string) {
	idx := strings.LastIndex(full, "/")
	if idx < 0 {
		return "/", full
	}
	parent = full[:idx]
	if parent == "" {
		parent = "/"
	}
	leaf = full[idx+1:]
	return parent, leaf
}

// JoinPath concatenates parent and leaf with a single "/", collapsing any
// duplicate slashes the concatenation would otherwise introduce.
func JoinPath(parent, leaf string) string {
	var b strings.Builder
	b.WriteString(parent)
	if !strings.HasSuffix(parent, "/") {
		b.WriteByte('/')
	}
	b.WriteString(leaf)
	return normalizeSlashes(b.String())
}

func normalizeSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// segments splits path on "/", discarding empty segments so that leading,
// trailing, and repeated slashes are all tolerated.
func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
