package governance

import (
	"fmt"
	"strings"
)

// Action is the configured response to detected PII.
type Action string

const (
	ActionRedact Action = "redact"
	ActionBlock  Action = "block"
	ActionAllow  Action = "allow"
)

// SourceBuiltin is the Source of configs built from the default rule set.
const SourceBuiltin = "builtin"

// DefaultVersion is the version reported by the built-in config.
const DefaultVersion = "default"

// ParseAction resolves an action name case-insensitively. An empty name
// means ActionRedact.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(ActionRedact):
		return ActionRedact, nil
	case string(ActionBlock):
		return ActionBlock, nil
	case string(ActionAllow):
		return ActionAllow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}

// Config is an immutable, compiled governance configuration. Build it with
// NewConfig or DefaultConfig; replace it as a whole through a Store.
type Config struct {
	version        string
	source         string
	rules          []*CompiledRule
	requiredFields []string
	onContainsPII  Action
}

// ConfigSpec is the uncompiled form of a Config.
type ConfigSpec struct {
	Version        string
	Source         string
	Rules          []PIIRule
	RequiredFields []string
	OnContainsPII  Action
}

// NewConfig compiles spec into a Config. Required fields are deduplicated
// keeping first occurrence order.
func NewConfig(spec ConfigSpec) (*Config, error) {
	rules, err := Compile(spec.Rules)
	if err != nil {
		return nil, err
	}

	action, err := ParseAction(string(spec.OnContainsPII))
	if err != nil {
		return nil, documentError("actions.onContainsPII", err)
	}

	required := make([]string, 0, len(spec.RequiredFields))
	seen := make(map[string]struct{}, len(spec.RequiredFields))
	for _, field := range spec.RequiredFields {
		if field == "" {
			return nil, documentError("schema.requiredFields", ErrEmptyField)
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		required = append(required, field)
	}

	return &Config{
		version:        spec.Version,
		source:         spec.Source,
		rules:          rules,
		requiredFields: required,
		onContainsPII:  action,
	}, nil
}

// DefaultConfig returns the built-in rules with ActionRedact and no required
// fields.
func DefaultConfig() *Config {
	cfg, err := NewConfig(ConfigSpec{
		Version:       DefaultVersion,
		Source:        SourceBuiltin,
		Rules:         GetDefaultRules(),
		OnContainsPII: ActionRedact,
	})
	if err != nil {
		panic(fmt.Sprintf("governance: default rules do not compile: %v", err))
	}
	return cfg
}

// Version returns the document version.
func (c *Config) Version() string { return c.version }

// Source returns where the config came from: a file path or SourceBuiltin.
func (c *Config) Source() string { return c.source }

// Rules returns the compiled rules in configured order. The slice must not
// be modified.
func (c *Config) Rules() []*CompiledRule { return c.rules }

// RequiredFields returns a copy of the required field names.
func (c *Config) RequiredFields() []string {
	return append([]string(nil), c.requiredFields...)
}

// OnContainsPII returns the configured action.
func (c *Config) OnContainsPII() Action { return c.onContainsPII }

// RuleNames returns the rule names in order.
func (c *Config) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Spec returns the uncompiled form of c.
func (c *Config) Spec() ConfigSpec {
	rules := make([]PIIRule, len(c.rules))
	for i, r := range c.rules {
		rules[i] = r.Rule()
	}
	return ConfigSpec{
		Version:        c.version,
		Source:         c.source,
		Rules:          rules,
		RequiredFields: c.RequiredFields(),
		OnContainsPII:  c.onContainsPII,
	}
}

// Apply governs payload under c.
func (c *Config) Apply(payload Payload) (GovernedResult, error) {
	return Apply(payload, c)
}

// Validate checks data against the required fields of c.
func (c *Config) Validate(data Fields) ValidationResult {
	return ValidateSchema(data, c.requiredFields)
}
