package template

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Lines of a source document are delimited by CRLF. Rendered output is
// joined with LF.
const (
	sourceLineDelimiter = "\r\n"
	outputLineDelimiter = "\n"
)

// Match asks for the inner content of the element carrying `id="ID"` to be
// replaced by Value. Value is inserted as is, it is not escaped.
type Match struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type Rendered struct {
	HTML    string
	Elapsed time.Duration
}

// ElapsedMs is Elapsed in fractional milliseconds.
func (r Rendered) ElapsedMs() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

type DocumentReadFailure struct {
	Path string
	Err  error
}

func (e *DocumentReadFailure) Error() string {
	return fmt.Sprintf("DocumentReadFailure: %s: %v", e.Path, e.Err)
}

func (e *DocumentReadFailure) Unwrap() error {
	return e.Err
}

type TemplateMatchFailure struct {
	Identifier string
	Reason     string
}

func (e *TemplateMatchFailure) Error() string {
	return fmt.Sprintf("TemplateMatchFailure: %q: %s", e.Identifier, e.Reason)
}

// DuplicateMatch is returned when an identifier is requested twice or two
// identifiers resolve to the same line.
type DuplicateMatch struct {
	Identifier string
}

func (e *DuplicateMatch) Error() string {
	return fmt.Sprintf("DuplicateMatch: %q", e.Identifier)
}

// Render reads the document at path and substitutes every match. Either all
// matches are applied or an error is returned and no output is produced.
func Render(path string, matches []Match) (*Rendered, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentReadFailure{Path: path, Err: err}
	}
	html, err := Substitute(string(data), matches)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		HTML:    html,
		Elapsed: time.Since(start),
	}, nil
}

// Substitute applies matches to an in-memory document.
func Substitute(document string, matches []Match) (string, error) {
	lines := strings.Split(document, sourceLineDelimiter)
	requested := make(map[string]bool, len(matches))
	replacements := make(map[int]string, len(matches))
	for _, match := range matches {
		if requested[match.ID] {
			return "", &DuplicateMatch{Identifier: match.ID}
		}
		requested[match.ID] = true
		index, replacement, err := replaceElement(lines, match)
		if err != nil {
			return "", err
		}
		if _, taken := replacements[index]; taken {
			return "", &DuplicateMatch{Identifier: match.ID}
		}
		replacements[index] = replacement
	}
	for index, replacement := range replacements {
		lines[index] = replacement
	}
	return strings.Join(lines, outputLineDelimiter), nil
}

// replaceElement finds the first line carrying the identifier and builds
// opening tag + value + closing tag. The element has to sit on one line.
func replaceElement(lines []string, match Match) (int, string, error) {
	if match.ID == "" {
		return -1, "", &TemplateMatchFailure{Identifier: match.ID, Reason: "empty identifier"}
	}
	attribute := fmt.Sprintf(`id="%s"`, match.ID)
	for index, line := range lines {
		if !strings.Contains(line, attribute) {
			continue
		}
		openStart := strings.Index(line, "<")
		openEnd := strings.Index(line, ">")
		if openStart == -1 || openEnd < openStart {
			return -1, "", &TemplateMatchFailure{Identifier: match.ID, Reason: "no opening tag"}
		}
		closeStart := strings.Index(line, "</")
		closeEnd := strings.LastIndex(line, ">")
		if closeStart == -1 || closeStart < openEnd || closeEnd < closeStart {
			return -1, "", &TemplateMatchFailure{Identifier: match.ID, Reason: "no closing tag"}
		}
		openingTag := strings.Replace(line[openStart:openEnd+1], " "+attribute, "", 1)
		closingTag := line[closeStart : closeEnd+1]
		return index, openingTag + match.Value + closingTag, nil
	}
	return -1, "", &TemplateMatchFailure{Identifier: match.ID, Reason: "not found"}
}
