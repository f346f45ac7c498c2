package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/jsonc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// inlineSchemaURL identifies schemas given as objects
const inlineSchemaURL = "mem://settings/schema.json"

// compiledSchema pairs the compiled validator with the plain schema document
// used to apply defaults
type compiledSchema struct {
	schema *jsonschema.Schema
	plain  any
}

func hasSchema(spec any) bool {
	if spec == nil {
		return false
	}
	if s, ok := spec.(string); ok && s == "" {
		return false
	}
	return true
}

// readSchema returns the schema as JSON text and the URL it is compiled under
func readSchema(spec any) ([]byte, string, error) {
	switch s := spec.(type) {
	case string:
		path, err := filepath.Abs(s)
		if err != nil {
			return nil, "", ErrSchemaLoad.Wrapf(err, "unable to load schema [%s]", s)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", ErrSchemaLoad.Wrapf(err, "unable to load schema [%s]", s)
		}
		text := jsonc.ToJSON(data)
		if !json.Valid(text) {
			return nil, "", ErrSchemaLoad.Wrapf(errors.New("invalid JSON"), "unable to load schema [%s]", s)
		}
		return text, path, nil
	case json.RawMessage:
		return []byte(s), inlineSchemaURL, nil
	}

	rv := reflect.ValueOf(spec)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map && rv.Kind() != reflect.Struct {
		return nil, "", ErrInvalidSchemaSpec.WithMsgf("schema must be a file path or an object, got %T", spec)
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, "", ErrInvalidSchemaSpec.Wrapf(err, "schema object is not JSON serializable")
	}
	return data, inlineSchemaURL, nil
}

// compileSchema builds the validator. Format assertion and defaults are
// enforced whatever the caller passed in opts.
func compileSchema(spec any, opts SchemaOptions) (*compiledSchema, error) {
	text, url, err := readSchema(spec)
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(text))
	if err != nil {
		return nil, ErrSchemaLoad.Wrap(err)
	}
	var plain any
	if err := json.Unmarshal(text, &plain); err != nil {
		return nil, ErrSchemaLoad.Wrap(err)
	}

	c := jsonschema.NewCompiler()
	if opts.Draft != nil {
		c.DefaultDraft(opts.Draft)
	}
	if opts.AssertContent {
		c.AssertContent()
	}
	for _, f := range opts.Formats {
		if f != nil {
			c.RegisterFormat(f)
		}
	}
	c.AssertFormat()

	if err := c.AddResource(url, doc); err != nil {
		return nil, ErrSchemaCompile.Wrap(err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, ErrSchemaCompile.Wrap(err)
	}
	return &compiledSchema{schema: sch, plain: plain}, nil
}

// validate fills in defaults, then checks value. value is modified in place.
func (s *compiledSchema) validate(value any) error {
	applyDefaults(s.plain, value)

	err := s.schema.Validate(value)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Failures: failuresOf(ve)}
	}
	return ErrValidation.Wrap(err)
}

// applyDefaults copies "default" values of absent properties into value.
// It follows properties, items, prefixItems, allOf and local $ref pointers
// into root.
func applyDefaults(root, value any) {
	walkDefaults(root, root, value, nil)
}

// active holds the $refs followed for the current value; a ref seen twice
// at the same level is a cycle. Child values start with a fresh set.
func walkDefaults(root, schema, value any, active map[string]bool) {
	s, ok := schema.(map[string]any)
	if !ok {
		return
	}

	if ref, ok := s["$ref"].(string); ok && strings.HasPrefix(ref, "#") && !active[ref] {
		if target, found := resolvePointer(root, ref[1:]); found {
			if active == nil {
				active = make(map[string]bool)
			}
			active[ref] = true
			walkDefaults(root, target, value, active)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		props, _ := s["properties"].(map[string]any)
		for name, raw := range props {
			ps, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if _, present := v[name]; !present {
				if def, has := defaultOf(root, ps); has {
					v[name] = copyValue(def)
				}
			}
			if child, present := v[name]; present {
				walkDefaults(root, ps, child, nil)
			}
		}
	case []any:
		var tuple []any
		switch items := s["items"].(type) {
		case map[string]any:
			for _, el := range v {
				walkDefaults(root, items, el, nil)
			}
		case []any:
			tuple = items
		}
		if prefix, ok := s["prefixItems"].([]any); ok {
			tuple = prefix
		}
		for i := 0; i < len(tuple) && i < len(v); i++ {
			walkDefaults(root, tuple[i], v[i], nil)
		}
	}

	if all, ok := s["allOf"].([]any); ok {
		for _, sub := range all {
			walkDefaults(root, sub, value, active)
		}
	}
}

// defaultOf returns the default of a property schema, looking through a
// chain of local $refs when the schema has none of its own
func defaultOf(root any, schema map[string]any) (any, bool) {
	seen := map[string]bool{}
	for {
		if def, ok := schema["default"]; ok {
			return def, true
		}
		ref, ok := schema["$ref"].(string)
		if !ok || !strings.HasPrefix(ref, "#") || seen[ref] {
			return nil, false
		}
		seen[ref] = true
		target, found := resolvePointer(root, ref[1:])
		next, isMap := target.(map[string]any)
		if !found || !isMap {
			return nil, false
		}
		schema = next
	}
}

// resolvePointer walks a URI-fragment JSON pointer ("" is the whole document)
func resolvePointer(doc any, pointer string) (any, bool) {
	if unescaped, err := url.PathUnescape(pointer); err == nil {
		pointer = unescaped
	}
	if pointer == "" {
		return doc, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}
	cur := doc
	for _, raw := range strings.Split(pointer[1:], "/") {
		token := pointerUnescaper.Replace(raw)
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = copyValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = copyValue(e)
		}
		return s
	default:
		return v
	}
}

var englishPrinter = message.NewPrinter(language.English)

// failuresOf flattens the error tree into its leaves
func failuresOf(root *jsonschema.ValidationError) []FailedConstraint {
	var out []FailedConstraint
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		f := FailedConstraint{
			Location: schemaLocation(e),
			Instance: jsonPointer(e.InstanceLocation),
		}
		if e.ErrorKind != nil {
			f.Message = e.ErrorKind.LocalizedString(englishPrinter)
		}
		out = append(out, f)
	}
	walk(root)
	return out
}

// schemaLocation renders "#/<path to schema>/<keyword>"
func schemaLocation(e *jsonschema.ValidationError) string {
	_, frag, _ := strings.Cut(e.SchemaURL, "#")
	loc := "#" + frag
	if e.ErrorKind == nil {
		return loc
	}
	for _, kw := range e.ErrorKind.KeywordPath() {
		loc += "/" + escapePointer(kw)
	}
	return loc
}

func jsonPointer(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(escapePointer(t))
	}
	return b.String()
}

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

func escapePointer(token string) string {
	return pointerEscaper.Replace(token)
}
