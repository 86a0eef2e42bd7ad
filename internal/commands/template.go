package commands

import (
	"fmt"
	"regexp"
	"strings"
)

// namedParam matches {name} with optional surrounding single quotes.
// Quotes are consumed with the placeholder so '{x}' binds as one value.
var namedParam = regexp.MustCompile(`'\{([A-Za-z_][A-Za-z0-9_]*)\}'|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render fills a positional {} template with a quoted identifier.
// Used for database and schema names, which engines cannot bind.
func (r *Registry) Render(template, identifier string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", fmt.Errorf("empty identifier")
	}
	if !strings.Contains(template, "{}") {
		return "", fmt.Errorf("template has no positional placeholder")
	}
	return strings.ReplaceAll(template, "{}", r.dialect.QuoteIdentifier(identifier)), nil
}

// Bind compiles a named template into a dialect statement and its ordered
// arguments. A name used twice binds twice. Every name must be present in params.
func (r *Registry) Bind(template string, params map[string]string) (string, []any, error) {
	var (
		args    []any
		missing []string
	)
	sql := namedParam.ReplaceAllStringFunc(template, func(m string) string {
		name := paramName(m)
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		args = append(args, v)
		return r.dialect.Placeholder(len(args))
	})
	if len(missing) > 0 {
		return "", nil, fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return sql, args, nil
}

// Interpolate substitutes params into the template as quoted string literals,
// doubling embedded single quotes. The output is for logs and explain output only; statements
// sent to the engine go through Bind. Unknown names are left in place.
func Interpolate(template string, params map[string]string) string {
	return namedParam.ReplaceAllStringFunc(template, func(m string) string {
		v, ok := params[paramName(m)]
		if !ok {
			return m
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	})
}

// Params lists the distinct named parameters of a template in order of
// first appearance.
func Params(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range namedParam.FindAllString(template, -1) {
		name := paramName(m)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func paramName(m string) string {
	return strings.Trim(m, "'{}")
}
