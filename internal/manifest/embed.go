package manifest

import (
	"strings"
)

// embeddedMarker is the first non-whitespace token of a manifest fragment
// block comment, per the Glossary's definition of "Embedded manifest
// fragment".
const embeddedMarker = "[toml]"

// ExtractEmbeddedFragment scans source text for a block comment whose first
// non-whitespace token is "[toml]" and returns the TOML body between the
// marker and the comment terminator. Returns ok=false if no such comment
// exists; this is not an error, most sources have no embedded manifest.
func ExtractEmbeddedFragment(source string) (tomlText string, ok bool) {
	start := strings.Index(source, "/*")
	for start != -1 {
		end := strings.Index(source[start:], "*/")
		if end == -1 {
			return "", false
		}
		end += start

		body := source[start+2 : end]
		trimmed := strings.TrimSpace(body)
		if strings.HasPrefix(trimmed, embeddedMarker) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, embeddedMarker)), true
		}

		next := strings.Index(source[end+2:], "/*")
		if next == -1 {
			return "", false
		}
		start = end + 2 + next
	}
	return "", false
}

// passThroughSections groups raw TOML lines by top-level header, so that
// the sections the Synthesiser never interprets ([features], [patch.*],
// [profile.*], [[bin]], [lints]) can be carried into the final manifest
// verbatim, header and all.
func passThroughSections(tomlText string) map[string]string {
	sections := make(map[string]string)
	var currentHeader string
	var buf strings.Builder

	flush := func() {
		if currentHeader == "" {
			return
		}
		if isPassThroughHeader(currentHeader) {
			sections[currentHeader] += buf.String()
		}
		buf.Reset()
	}

	for _, line := range strings.Split(tomlText, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			flush()
			currentHeader = strings.Trim(strings.Trim(trimmed, "["), "]")
			currentHeader = strings.Trim(currentHeader, "[]")
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return sections
}

func isPassThroughHeader(header string) bool {
	switch {
	case header == "features", header == "lints", header == "bin":
		return true
	case strings.HasPrefix(header, "patch."):
		return true
	case strings.HasPrefix(header, "profile."):
		return true
	default:
		return false
	}
}
