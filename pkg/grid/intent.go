package grid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fly-io/gridmigrate/pkg/errors"
)

// ErrMalformedIntent is returned for launch targets that cannot be parsed.
var ErrMalformedIntent = errors.New("malformed launch target")

const (
	intentPrefix = "#Intent;"
	intentSuffix = "end"
)

// Target is the parsed form of a launch target.
type Target struct {
	Package string
	// Component is the fully qualified "package/class", empty when the
	// target only names a package.
	Component string
}

// Key returns the most specific name of the target.
func (t Target) Key() string {
	if t.Component != "" {
		return t.Component
	}
	return t.Package
}

// ParseTarget parses either an intent URI ("#Intent;component=pkg/.Cls;end",
// optionally preceded by a data part) or a bare "pkg" or "pkg/Cls" target.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrMalformedIntent)
	}

	if idx := strings.Index(s, intentPrefix); idx >= 0 {
		return parseIntentURI(s[idx+len(intentPrefix):])
	}
	if strings.ContainsAny(s, ";#= ") {
		return Target{}, fmt.Errorf("%w: %q", ErrMalformedIntent, s)
	}
	if strings.Contains(s, "/") {
		return parseComponent(s)
	}
	if !validPackage(s) {
		return Target{}, fmt.Errorf("%w: invalid package %q", ErrMalformedIntent, s)
	}
	return Target{Package: s}, nil
}

func parseIntentURI(body string) (Target, error) {
	var t Target
	terminated := false
	for _, part := range strings.Split(body, ";") {
		if part == intentSuffix {
			terminated = true
			break
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "component":
			c, err := parseComponent(value)
			if err != nil {
				return Target{}, err
			}
			t.Component = c.Component
			if t.Package == "" {
				t.Package = c.Package
			}
		case "package":
			if !validPackage(value) {
				return Target{}, fmt.Errorf("%w: invalid package %q", ErrMalformedIntent, value)
			}
			t.Package = value
		}
	}
	if !terminated {
		return Target{}, fmt.Errorf("%w: unterminated intent", ErrMalformedIntent)
	}
	if t.Package == "" {
		return Target{}, fmt.Errorf("%w: intent names no package", ErrMalformedIntent)
	}
	return t, nil
}

func parseComponent(s string) (Target, error) {
	pkg, cls, ok := strings.Cut(s, "/")
	if !ok || !validPackage(pkg) || cls == "" || cls == "." {
		return Target{}, fmt.Errorf("%w: invalid component %q", ErrMalformedIntent, s)
	}
	if strings.HasPrefix(cls, ".") {
		cls = pkg + cls
	}
	if !validPackage(cls) {
		return Target{}, fmt.Errorf("%w: invalid class %q", ErrMalformedIntent, cls)
	}
	return Target{Package: pkg, Component: pkg + "/" + cls}, nil
}

// validPackage reports whether s is a dot separated list of Java identifiers.
func validPackage(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			switch {
			case r == '_' || r == '$', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9' && i > 0:
			default:
				return false
			}
		}
	}
	return true
}

// FolderIdentity derives a folder's identity from its children's identities.
func FolderIdentity(children []Item) string {
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.Identity)
	}
	sort.Strings(ids)
	return "folder:" + strings.Join(ids, ",")
}

// WidgetIdentity derives a widget's identity from its provider.
func WidgetIdentity(provider Target) string {
	return "widget:" + provider.Key()
}
