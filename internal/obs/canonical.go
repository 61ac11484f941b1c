package obs

import "strings"

// CanonicalPath collapses per-message identifiers so metric labels stay
// low-cardinality. Unknown shapes pass through unchanged.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	rest, ok := strings.CutPrefix(path, "/v1/messages/")
	if !ok || rest == "" {
		return path
	}
	if rest == "stream" || strings.Contains(rest, "/") {
		return path
	}
	return "/v1/messages/:id"
}
