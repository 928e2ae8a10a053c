package diagram

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ValidationReport describes the outcome of ValidateAndFix. Invalid markup is
// reported here rather than as an error; the caller decides whether to block.
type ValidationReport struct {
	Valid bool     `json:"valid"`
	Error string   `json:"error,omitempty"`
	Fixed string   `json:"fixed,omitempty"`
	Fixes []string `json:"fixes,omitempty"`
}

// ValidateAndFix repairs common damage in generated markup (byte order mark,
// markdown code fences, unescaped ampersands) and then checks that the result
// is well-formed, rooted at mxfile or mxGraphModel, and free of duplicate cell
// ids. Fixed is set only when a repair was applied.
func ValidateAndFix(markup string) ValidationReport {
	s := markup
	var fixes []string

	if strings.HasPrefix(s, "\ufeff") {
		s = strings.TrimPrefix(s, "\ufeff")
		fixes = append(fixes, "removed byte order mark")
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = stripCodeFence(s)
		fixes = append(fixes, "removed markdown code fence")
	}

	if escaped, n := escapeStrayAmpersands(s); n > 0 {
		s = escaped
		fixes = append(fixes, fmt.Sprintf("escaped %d stray ampersand(s)", n))
	}

	report := ValidationReport{Fixes: fixes}
	if len(fixes) > 0 {
		report.Fixed = s
	}

	if s == "" {
		report.Error = "empty diagram markup"
		return report
	}
	if err := checkStructure(s); err != nil {
		report.Error = err.Error()
		return report
	}

	report.Valid = true
	return report
}

func stripCodeFence(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// escapeStrayAmpersands rewrites every '&' that does not start an entity or
// character reference to "&amp;".
func escapeStrayAmpersands(s string) (string, int) {
	if !strings.Contains(s, "&") {
		return s, 0
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !isReference(s[i+1:]) {
			b.WriteString("&amp;")
			n++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), n
}

func isReference(rest string) bool {
	end := strings.IndexByte(rest, ';')
	if end <= 0 || end > 32 {
		return false
	}
	name := rest[:end]

	if name[0] == '#' {
		digits := name[1:]
		hex := false
		if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
			digits = digits[1:]
			hex = true
		}
		if digits == "" {
			return false
		}
		for _, c := range digits {
			if !isDigit(c) && !(hex && isHexLetter(c)) {
				return false
			}
		}
		return true
	}

	for i, c := range name {
		if isLetter(c) || (i > 0 && isDigit(c)) {
			continue
		}
		return false
	}
	return true
}

func isDigit(c rune) bool     { return c >= '0' && c <= '9' }
func isHexLetter(c rune) bool { return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isLetter(c rune) bool    { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func checkStructure(s string) error {
	d := xml.NewDecoder(strings.NewReader(s))
	ids := make(map[string]struct{})
	rootSeen := false

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed XML: %v", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !rootSeen {
			rootSeen = true
			if start.Name.Local != "mxfile" && start.Name.Local != "mxGraphModel" {
				return fmt.Errorf("unexpected root element <%s>", start.Name.Local)
			}
		}

		if start.Name.Local == "diagram" {
			// cell ids are scoped to a page
			ids = make(map[string]struct{})
			continue
		}
		if start.Name.Local != "mxCell" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local != "id" {
				continue
			}
			if _, dup := ids[attr.Value]; dup {
				return fmt.Errorf("duplicate cell id %q", attr.Value)
			}
			ids[attr.Value] = struct{}{}
		}
	}

	if !rootSeen {
		return fmt.Errorf("no root element")
	}
	return nil
}
