package record

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// SizeClass buckets a file by its size in kilobytes.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// FileName returns the last path segment of rawURL. A URL whose path ends in
// a slash is named "index.js"; an unparseable one falls back to splitting on
// "/" and finally to "unknown.js".
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		if i := strings.LastIndex(rawURL, "/"); i >= 0 && i < len(rawURL)-1 {
			return rawURL[i+1:]
		}
		if rawURL != "" && !strings.Contains(rawURL, "/") {
			return rawURL
		}
		return "unknown.js"
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "index.js"
	}
	return path.Base(u.Path)
}

// SizeKB formats the UTF-8 byte length of content in kilobytes with two
// decimals. Non-empty content never reports less than 0.01.
func SizeKB(content string) string {
	return formatKB(kilobytes(int64(len(content))))
}

// SizeOf returns the size of r in kilobytes and its size class. The content
// length is used when content is known, the transfer size otherwise.
func SizeOf(r FileRecord) (string, SizeClass) {
	n := int64(len(r.Content))
	if n == 0 {
		n = r.Size
	}
	kb := kilobytes(n)
	return formatKB(kb), ClassifySize(kb)
}

func kilobytes(n int64) float64 {
	if n <= 0 {
		return 0
	}
	return max(float64(n)/1024, 0.01)
}

func formatKB(kb float64) string {
	return strconv.FormatFloat(kb, 'f', 2, 64)
}

// ClassifySize buckets kb: under 10 is small, up to 40 is medium, the rest large.
func ClassifySize(kb float64) SizeClass {
	switch {
	case kb < 10:
		return SizeSmall
	case kb <= 40:
		return SizeMedium
	default:
		return SizeLarge
	}
}

var jsExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".vue", ".svelte"}

// IsJavaScriptFile guesses whether a response is a script from its URL and
// Content-Type header.
func IsJavaScriptFile(rawURL, contentType string) bool {
	bare := strings.ToLower(strings.SplitN(rawURL, "?", 2)[0])
	for _, ext := range jsExtensions {
		if strings.HasSuffix(bare, ext) {
			return true
		}
	}

	ct := strings.ToLower(contentType)
	if ct == "" {
		return false
	}
	for _, marker := range []string{"javascript", "ecmascript", "typescript", "jsx", "tsx"} {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	if !strings.Contains(lastSegment(bare), ".") && strings.Contains(ct, "module") {
		return true
	}
	return false
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
