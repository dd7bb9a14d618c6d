// Package urlpath turns raw request targets into relative filesystem paths
// that are safe to join to a document root.
package urlpath

import (
	"net/url"
	"strings"
)

// IndexFile is appended to paths that name a directory.
const IndexFile = "index.html"

// Normalize sanitizes a raw URL path (query string, dot segments, duplicate
// slashes and percent-encoding included) into a root-relative path.
//
// ".." never climbs above the root: popping an empty stack is a no-op, so
// "/../../.." normalizes to "index.html".
func Normalize(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	for strings.Contains(raw, "//") {
		raw = strings.ReplaceAll(raw, "//", "/")
	}

	segments := strings.Split(raw, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ".", "":
		default:
			stack = append(stack, seg)
		}
	}

	last := segments[len(segments)-1]
	dir := last == ""

	// "/docs/file.txt/" still names the file.
	if last == "" && len(stack) > 0 && strings.Contains(stack[len(stack)-1], ".") {
		dir = false
	}

	cleaned := clean(decode(strings.Join(stack, "/")))
	if cleaned == "" {
		return IndexFile
	}
	if dir {
		return cleaned + "/" + IndexFile
	}
	return cleaned
}

func decode(p string) string {
	unescaped, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return unescaped
}

// clean drops segments that only appear after decoding ("%2e%2e", "%2f")
// so that unescaping can never reintroduce traversal.
func clean(p string) string {
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." || strings.IndexByte(seg, 0) >= 0 {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}
