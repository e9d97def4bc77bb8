package vars

import (
	"regexp"

	"go.uber.org/zap"
)

// tokenPattern matches {identifier}. Identifiers may contain dots and dashes
// so property keys such as {base.url} work; JSON-like text ({"a": 1}) does
// not match.
var tokenPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// ReplaceVariables substitutes every {identifier} token in template. Each
// token is looked up in the external source first and the scope second.
// Substituted values are scanned again, so a value may itself contain tokens.
//
// The result is all or nothing: an unresolvable token yields an
// *UnresolvedVariableError, and tokens surviving the pass cap yield a
// *CyclicVariableError. No partially substituted string is ever returned.
func (s *Store) ReplaceVariables(template string) (string, error) {
	out := template
	for pass := 0; pass < s.maxPasses; pass++ {
		matches := tokenPattern.FindAllStringSubmatchIndex(out, -1)
		if len(matches) == 0 {
			return out, nil
		}

		buf := make([]byte, 0, len(out))
		last := 0
		for _, m := range matches {
			name := out[m[2]:m[3]]
			value, ok := s.resolve(name)
			if !ok {
				return "", &UnresolvedVariableError{Token: name, Template: template}
			}
			buf = append(buf, out[last:m[0]]...)
			buf = append(buf, value...)
			last = m[1]
		}
		buf = append(buf, out[last:]...)
		out = string(buf)
	}

	if remaining := tokens(out); len(remaining) > 0 {
		// A token brought in by the last pass may not resolve at all; that is
		// a missing variable, not a cycle.
		for _, name := range remaining {
			if _, ok := s.resolve(name); !ok {
				return "", &UnresolvedVariableError{Token: name, Template: template}
			}
		}
		s.logger.Debug("Substitution did not converge.",
			zap.String("template", template),
			zap.Strings("remaining", remaining))
		return "", &CyclicVariableError{Template: template, Passes: s.maxPasses, Remaining: remaining}
	}
	return out, nil
}

// Tokens lists the distinct identifiers referenced by template in order of
// first appearance.
func Tokens(template string) []string {
	return tokens(template)
}

func tokens(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
