package governance

import (
	"fmt"
	"regexp"
	"strings"
)

// Option is a match option attached to a PIIRule.
type Option string

const (
	// OptionCompiled asks for a precompiled matcher. Go regexps are always
	// compiled, so it does not change matching.
	OptionCompiled Option = "Compiled"
	// OptionIgnoreCase enables case-insensitive matching.
	OptionIgnoreCase Option = "IgnoreCase"
)

// Default rule names.
const (
	RuleEmail      = "email"
	RuleCreditCard = "credit_card"
	RuleSSN        = "ssn"
)

// PIIRule is a declarative detection rule.
type PIIRule struct {
	Name        string
	Pattern     string
	Replacement string
	Options     []Option
}

// CompiledRule is a PIIRule with its matcher built.
type CompiledRule struct {
	rule  PIIRule
	regex *regexp.Regexp
}

// Name returns the rule name.
func (r *CompiledRule) Name() string { return r.rule.Name }

// Pattern returns the source pattern as configured.
func (r *CompiledRule) Pattern() string { return r.rule.Pattern }

// Replacement returns the replacement template.
func (r *CompiledRule) Replacement() string { return r.rule.Replacement }

// Rule returns a copy of the source rule.
func (r *CompiledRule) Rule() PIIRule {
	rule := r.rule
	rule.Options = append([]Option(nil), r.rule.Options...)
	return rule
}

// Regexp returns the compiled matcher.
func (r *CompiledRule) Regexp() *regexp.Regexp { return r.regex }

// ParseOption resolves an option name case-insensitively.
func ParseOption(name string) (Option, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "compiled":
		return OptionCompiled, nil
	case "ignorecase":
		return OptionIgnoreCase, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
}

// GetDefaultRules returns the built-in rule set used when no governance
// document is supplied.
func GetDefaultRules() []PIIRule {
	return []PIIRule{
		{
			Name:        RuleEmail,
			Pattern:     `(?P<local>[A-Za-z0-9._%+\-]+)@(?P<domain>[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`,
			Replacement: "***@${domain}",
			Options:     []Option{OptionCompiled},
		},
		{
			// runs before credit_card so an adjacent card number cannot absorb it
			Name:        RuleSSN,
			Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
			Replacement: "***-**-****",
			Options:     []Option{OptionCompiled},
		},
		{
			// 13 to 19 digits, single spaces or hyphens allowed between digits
			Name:        RuleCreditCard,
			Pattern:     `\b(?:\d[ \-]?){12,18}\d\b`,
			Replacement: "****-****-****-****",
			Options:     []Option{OptionCompiled},
		},
	}
}

// Compile builds matchers for rules, keeping their order. It fails with a
// *ConfigError on the first invalid rule.
func Compile(rules []PIIRule) ([]*CompiledRule, error) {
	compiled := make([]*CompiledRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))

	for i, rule := range rules {
		if strings.TrimSpace(rule.Name) == "" {
			return nil, &ConfigError{Index: i, Field: "name", Err: ErrEmptyField}
		}
		if _, dup := seen[rule.Name]; dup {
			return nil, &ConfigError{Rule: rule.Name, Index: i, Field: "name", Err: ErrDuplicateRule}
		}
		seen[rule.Name] = struct{}{}

		if rule.Pattern == "" {
			return nil, &ConfigError{Rule: rule.Name, Index: i, Field: "pattern", Err: ErrEmptyField}
		}

		expr := rule.Pattern
		for _, opt := range rule.Options {
			parsed, err := ParseOption(string(opt))
			if err != nil {
				return nil, &ConfigError{Rule: rule.Name, Index: i, Field: "options", Err: err}
			}
			if parsed == OptionIgnoreCase && !strings.HasPrefix(expr, "(?i)") {
				expr = "(?i)" + expr
			}
		}

		regex, err := regexp.Compile(expr)
		if err != nil {
			return nil, &ConfigError{
				Rule:  rule.Name,
				Index: i,
				Field: "pattern",
				Err:   fmt.Errorf("%w: %v", ErrInvalidPattern, err),
			}
		}

		compiled = append(compiled, &CompiledRule{
			rule:  PIIRule{Name: rule.Name, Pattern: rule.Pattern, Replacement: rule.Replacement, Options: append([]Option(nil), rule.Options...)},
			regex: regex,
		})
	}

	return compiled, nil
}
