package governance

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed document_schema.json
var documentSchemaJSON []byte

const documentSchemaURL = "governance-document.json"

// Document is the external governance document.
type Document struct {
	Version  string          `yaml:"version" json:"version,omitempty"`
	PIIRules []RuleDocument  `yaml:"piiRules" json:"piiRules,omitempty"`
	Schema   SchemaDocument  `yaml:"schema" json:"schema"`
	Actions  ActionsDocument `yaml:"actions" json:"actions"`
}

// RuleDocument is one entry of piiRules.
type RuleDocument struct {
	Name        string   `yaml:"name" json:"name,omitempty"`
	Pattern     string   `yaml:"pattern" json:"pattern,omitempty"`
	Replacement string   `yaml:"replacement" json:"replacement,omitempty"`
	Options     []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// SchemaDocument lists the required top-level fields.
type SchemaDocument struct {
	RequiredFields []string `yaml:"requiredFields,omitempty" json:"requiredFields,omitempty"`
}

// ActionsDocument holds the configured action.
type ActionsDocument struct {
	OnContainsPII string `yaml:"onContainsPII" json:"onContainsPII,omitempty"`
}

var compileDocumentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add document schema: %w", err)
	}
	return c.Compile(documentSchemaURL)
})

// LoadFile loads the governance document at path. An empty path or a file
// that does not exist yields DefaultConfig; callers can tell by
// Config.Source() == SourceBuiltin. Any other failure is a *ConfigError.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, documentError("", fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
	}

	return ParseDocument(data, path)
}

// ReloadFile loads the document at path for a reload. Unlike LoadFile, a
// missing path or file is an error, so a Store.Reload keeps the previous
// config instead of falling back to the built-in rules.
func ReloadFile(path string) (*Config, error) {
	if path == "" {
		return nil, documentError("", fmt.Errorf("%w: no document path", ErrSourceUnavailable))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, documentError("", fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
	}
	return ParseDocument(data, path)
}

// ParseDocument decodes and validates a YAML or JSON governance document in
// three phases: strict decode, JSON Schema, then rule compilation.
func ParseDocument(data []byte, source string) (*Config, error) {
	// Phase 1: structural
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, documentError("", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}

	// Phase 2: semantic
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	// Phase 3: domain
	return doc.Config(source)
}

// Config compiles the document.
func (d *Document) Config(source string) (*Config, error) {
	spec := ConfigSpec{
		Version:        d.Version,
		Source:         source,
		Rules:          make([]PIIRule, len(d.PIIRules)),
		RequiredFields: d.Schema.RequiredFields,
		OnContainsPII:  Action(d.Actions.OnContainsPII),
	}
	for i, r := range d.PIIRules {
		opts := make([]Option, len(r.Options))
		for j, o := range r.Options {
			opts[j] = Option(o)
		}
		spec.Rules[i] = PIIRule{
			Name:        r.Name,
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			Options:     opts,
		}
	}
	return NewConfig(spec)
}

// NewDocument renders cfg back into document form.
func NewDocument(cfg *Config) Document {
	doc := Document{
		Version: cfg.Version(),
		Schema:  SchemaDocument{RequiredFields: cfg.RequiredFields()},
		Actions: ActionsDocument{OnContainsPII: string(cfg.OnContainsPII())},
	}
	for _, r := range cfg.Rules() {
		rule := r.Rule()
		opts := make([]string, len(rule.Options))
		for i, o := range rule.Options {
			opts[i] = string(o)
		}
		doc.PIIRules = append(doc.PIIRules, RuleDocument{
			Name:        rule.Name,
			Pattern:     rule.Pattern,
			Replacement: rule.Replacement,
			Options:     opts,
		})
	}
	return doc
}

func decodeDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("document is empty")
	}

	var doc Document
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return &doc, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("document is empty")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &doc, nil
}

func validateDocument(doc *Document) error {
	sch, err := compileDocumentSchema()
	if err != nil {
		return documentError("", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return documentError("", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return documentError("", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return documentError("", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}

	leaf := firstLeaf(ve)
	return schemaError(doc, leaf)
}

// firstLeaf returns the first validation error without causes.
func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func schemaError(doc *Document, leaf *jsonschema.ValidationError) *ConfigError {
	printer := message.NewPrinter(language.English)
	msg := leaf.ErrorKind.LocalizedString(printer)
	loc := leaf.InstanceLocation

	cerr := &ConfigError{
		Index: -1,
		Field: strings.Join(loc, "."),
		Err:   fmt.Errorf("%w: %s", ErrMalformedDocument, msg),
	}

	if len(loc) >= 2 && loc[0] == "piiRules" {
		if idx, err := strconv.Atoi(loc[1]); err == nil && idx < len(doc.PIIRules) {
			cerr.Index = idx
			cerr.Rule = doc.PIIRules[idx].Name
			cerr.Field = strings.Join(loc[2:], ".")
		}
	}

	return cerr
}
