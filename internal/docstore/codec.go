package docstore

import (
	"fmt"

	"github.com/bytedance/sonic"
)

var codec = sonic.ConfigStd

// Marshal encodes v with the store codec.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes data with the store codec.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// Encode converts a struct (or any JSON-marshalable value that encodes to an
// object) into a Document.
func Encode(v any) (Document, error) {
	raw, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := codec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("encode document: %T is not an object", v)
	}
	return doc, nil
}

// Decode converts a Document into v.
func Decode(doc Document, v any) error {
	raw, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Normalize returns a deep copy of doc with every value in its decoded JSON
// form (numbers become float64, times become strings, structs become maps).
func Normalize(doc Document) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	return Encode(doc)
}

func normalizeValue(v any) (any, error) {
	raw, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := codec.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
