// Package promptrender implements the strict identifier-only template
// substitution contract: placeholders must be plain identifiers, doubled
// braces escape to literal braces, and any other placeholder shape is
// rejected rather than silently tolerated.
package promptrender

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TemplateNotFoundError is raised when a template file cannot be found.
type TemplateNotFoundError struct{ Path string }

func (e *TemplateNotFoundError) Error() string { return "promptrender: template not found: " + e.Path }

// UnsupportedPlaceholderError is raised when a template contains a
// placeholder that is not a plain identifier.
type UnsupportedPlaceholderError struct {
	Path        string
	Placeholder string
}

func (e *UnsupportedPlaceholderError) Error() string {
	return fmt.Sprintf("promptrender: template %q contains unsupported placeholder {%s}; only simple identifiers like {seed} are allowed", e.Path, e.Placeholder)
}

// MissingVariablesError is raised when required template variables were not
// supplied. Missing is sorted for deterministic error messages.
type MissingVariablesError struct {
	Path    string
	Missing []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("promptrender: template %q requires variables that were not provided: %s", e.Path, strings.Join(e.Missing, ", "))
}

// RenderError wraps any other template-reading/format failure.
type RenderError struct{ Msg string }

func (e *RenderError) Error() string { return "promptrender: " + e.Msg }

// tokenKind classifies one token found while scanning a template.
type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokField
)

type token struct {
	kind tokenKind
	text string // literal text, or the field name
}

// scan tokenizes template, handling {{ and }} as escaped literal braces and
// {name} as a field reference. An unterminated '{' or a lone '}' is returned
// here as a RenderError; a field body that is not a bare identifier is
// rejected later by extractRequired.
func scan(tmplPath, template string) ([]token, error) {
	var toks []token
	var lit strings.Builder
	i := 0
	n := len(template)
	for i < n {
		c := template[i]
		switch c {
		case '{':
			if i+1 < n && template[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			// Field reference: scan to the matching '}'.
			end := strings.IndexByte(template[i+1:], '}')
			if end == -1 {
				return nil, &RenderError{Msg: fmt.Sprintf("invalid format string in template %q: unterminated '{'", tmplPath)}
			}
			field := template[i+1 : i+1+end]
			if lit.Len() > 0 {
				toks = append(toks, token{kind: tokLiteral, text: lit.String()})
				lit.Reset()
			}
			toks = append(toks, token{kind: tokField, text: field})
			i = i + 1 + end + 1
		case '}':
			if i+1 < n && template[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, &RenderError{Msg: fmt.Sprintf("invalid format string in template %q: single '}' encountered", tmplPath)}
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		toks = append(toks, token{kind: tokLiteral, text: lit.String()})
	}
	return toks, nil
}

// extractRequired returns the set of required identifiers and validates that
// every field placeholder is a bare identifier.
func extractRequired(tmplPath string, toks []token) (map[string]struct{}, error) {
	required := map[string]struct{}{}
	for _, t := range toks {
		if t.kind != tokField {
			continue
		}
		if t.text == "" || !identifierRe.MatchString(t.text) {
			return nil, &UnsupportedPlaceholderError{Path: tmplPath, Placeholder: t.text}
		}
		required[t.text] = struct{}{}
	}
	return required, nil
}

// Render reads templatePath, validates its placeholders, checks that
// variables provides every required identifier, and renders the result.
// Values may be string, int, float64, or bool; they render via their natural
// textual form. Extra provided variables are tolerated.
func Render(templatePath string, variables map[string]any) (string, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateNotFoundError{Path: templatePath}
		}
		return "", &RenderError{Msg: fmt.Sprintf("error reading template file %q: %v", templatePath, err)}
	}
	if !utf8.Valid(data) {
		return "", &RenderError{Msg: fmt.Sprintf("template file %q is not valid UTF-8", templatePath)}
	}
	template := string(data)

	toks, err := scan(templatePath, template)
	if err != nil {
		return "", err
	}

	required, err := extractRequired(templatePath, toks)
	if err != nil {
		return "", err
	}

	var missing []string
	for name := range required {
		if _, ok := variables[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariablesError{Path: templatePath, Missing: missing}
	}

	var out strings.Builder
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			out.WriteString(t.text)
		case tokField:
			out.WriteString(formatValue(variables[t.text]))
		}
	}
	return out.String(), nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
