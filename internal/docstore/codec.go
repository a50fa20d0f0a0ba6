package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec converts between file bytes and a document tree.
type Codec interface {
	// Name returns the format name ("json", "xml" or "yaml").
	Name() string
	// ContentType returns the MIME type of encoded documents.
	ContentType() string
	// Decode parses data into a normalized tree.
	Decode(data []byte) (any, error)
	// Encode serializes a tree.
	Encode(root any) ([]byte, error)
}

// CodecFor returns the codec for a format name.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return JSON{}, nil
	case "xml":
		return XML{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".xml":
		return "xml", nil
	case ".yml", ".yaml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("cannot infer format from %q", path)
	}
}

// JSON is the pretty-printed JSON codec.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return "json" }

// ContentType implements Codec.
func (JSON) ContentType() string { return "application/json" }

// Decode implements Codec.
func (JSON) Decode(data []byte) (any, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var root any
	if err := d.Decode(&root); err != nil {
		return nil, err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return Normalize(root), nil
}

// Encode implements Codec.
func (JSON) Encode(root any) ([]byte, error) {
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	e.SetIndent("", "  ")
	if err := e.Encode(root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAML is the block-style YAML codec.
type YAML struct{}

// Name implements Codec.
func (YAML) Name() string { return "yaml" }

// ContentType implements Codec.
func (YAML) ContentType() string { return "text/yaml" }

// Decode implements Codec.
func (YAML) Decode(data []byte) (any, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return Normalize(root), nil
}

// Encode implements Codec.
func (YAML) Encode(root any) ([]byte, error) {
	var buf bytes.Buffer
	e := yaml.NewEncoder(&buf)
	e.SetIndent(2)
	if err := e.Encode(yamlValue(root)); err != nil {
		return nil, err
	}
	if err := e.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yamlValue returns a copy of v in which json.Number integers are plain YAML
// integers rather than strings.
func yamlValue(v any) any {
	switch t := v.(type) {
	case Record:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}
		return out
	case map[string]any:
		return yamlValue(Record(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}
		return out
	case json.Number:
		tag := "!!float"
		if isIntegerLiteral(t.String()) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String()}
	default:
		return v
	}
}
