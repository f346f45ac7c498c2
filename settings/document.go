package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// DocumentKind discriminates Document
type DocumentKind int

const (
	KindRawText DocumentKind = iota + 1
	KindStructured
)

func (k DocumentKind) String() string {
	switch k {
	case KindRawText:
		return "raw-text"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Document is what a loader returns: relaxed JSON text to be parsed, or an
// already structured value
type Document struct {
	kind  DocumentKind
	text  []byte
	value any
}

// RawText wraps relaxed JSON text (comments and trailing commas allowed)
func RawText(text []byte) Document {
	return Document{kind: KindRawText, text: text}
}

// Structured wraps a value; it must be JSON marshalable
func Structured(value any) Document {
	return Document{kind: KindStructured, value: value}
}

// Kind returns the variant; the zero Document has kind 0
func (d Document) Kind() DocumentKind {
	return d.kind
}

// Text returns the raw text of a KindRawText document
func (d Document) Text() []byte {
	return d.text
}

// Value returns the value of a KindStructured document
func (d Document) Value() any {
	return d.value
}

// decode returns the document in the JSON value model
// (map[string]any, []any, float64, string, bool, nil)
func (d Document) decode() (any, error) {
	switch d.kind {
	case KindRawText:
		return parseRelaxedJSON(d.text)
	case KindStructured:
		return normalize(d.value)
	default:
		return nil, fmt.Errorf("loader returned an empty document")
	}
}

// LoaderFunc fetches the document for source
type LoaderFunc func(ctx context.Context, source string) (Document, error)

func parseRelaxedJSON(text []byte) (any, error) {
	var v any
	if err := json.Unmarshal(jsonc.ToJSON(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
