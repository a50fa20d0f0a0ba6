package docstore

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const (
	xmlRootElement = "Database"
	xmlFlatItem    = "Borrow" // items of a bare top-level list
	xmlAttrPrefix  = "@"
	xmlTextKey     = "#text"
)

// XML is the element-per-record XML codec.
//
// The root element is always <Database>. A mapping key holding a list is
// written as one element per item, so a list with a single item decodes back
// as a lone mapping; shapes treat such values as one-item lists. An empty list
// is written as an empty element and decodes back as "", which shapes treat as
// an empty list. Every decoded leaf is a string.
//
// Encode fails with ErrUnsupported on keys that are not XML names and on lists
// nested directly in lists, neither of which the format can hold.
type XML struct{}

// Name implements Codec.
func (XML) Name() string { return "xml" }

// ContentType implements Codec.
func (XML) ContentType() string { return "application/xml" }

// Decode implements Codec.
func (XML) Decode(data []byte) (any, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing root element")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeXMLElement(d, start, true)
		}
	}
}

func decodeXMLElement(d *xml.Decoder, start xml.StartElement, root bool) (any, error) {
	rec := Record{}
	for _, a := range start.Attr {
		rec[xmlAttrPrefix+a.Name.Local] = a.Value
	}
	var text strings.Builder
	hasChildren := false
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("element <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := decodeXMLElement(d, t, false)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			switch existing := rec[name].(type) {
			case nil:
				rec[name] = child
			case []any:
				rec[name] = append(existing, child)
			default:
				rec[name] = []any{existing, child}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if hasChildren || root {
				return rec, nil
			}
			if len(rec) == 0 {
				return s, nil
			}
			if s != "" {
				rec[xmlTextKey] = s
			}
			return rec, nil
		}
	}
}

// Encode implements Codec.
func (XML) Encode(root any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	e := xml.NewEncoder(&buf)
	e.Indent("", "  ")
	start := xml.StartElement{Name: xml.Name{Local: xmlRootElement}}
	var err error
	switch t := root.(type) {
	case []any:
		err = encodeXMLElement(e, start, Record{xmlFlatItem: t})
	case nil:
		err = encodeXMLElement(e, start, Record{})
	default:
		err = encodeXMLElement(e, start, t)
	}
	if err != nil {
		return nil, err
	}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXMLElement(e *xml.Encoder, start xml.StartElement, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return encodeXMLRecord(e, start, Record(t))
	case Record:
		return encodeXMLRecord(e, start, t)
	case []any:
		if len(t) == 0 {
			if err := e.EncodeToken(start); err != nil {
				return err
			}
			return e.EncodeToken(start.End())
		}
		for _, item := range t {
			if _, ok := item.([]any); ok {
				return fmt.Errorf("%w: <%s> holds a list of lists", ErrUnsupported, start.Name.Local)
			}
			if err := encodeXMLElement(e, start, item); err != nil {
				return err
			}
		}
		return nil
	default:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		if err := e.EncodeToken(xml.CharData(xmlScalarText(t))); err != nil {
			return err
		}
		return e.EncodeToken(start.End())
	}
}

func encodeXMLRecord(e *xml.Encoder, start xml.StartElement, rec Record) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var children []string
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, xmlAttrPrefix):
			if !isXMLName(k[len(xmlAttrPrefix):]) {
				return fmt.Errorf("%w: %q is not a valid XML attribute name", ErrUnsupported, k)
			}
			if rec[k] != nil {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k[len(xmlAttrPrefix):]}, Value: xmlScalarText(rec[k])})
			}
		case k == xmlTextKey:
		default:
			if !isXMLName(k) {
				return fmt.Errorf("%w: %q is not a valid XML element name", ErrUnsupported, k)
			}
			children = append(children, k)
		}
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if text, ok := rec[xmlTextKey]; ok && text != nil {
		if err := e.EncodeToken(xml.CharData(xmlScalarText(text))); err != nil {
			return err
		}
	}
	for _, k := range children {
		if err := encodeXMLElement(e, xml.StartElement{Name: xml.Name{Local: k}}, rec[k]); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// isXMLName reports whether s can be used as an element or attribute name.
// Colons are rejected since they would be read back as a namespace prefix, and
// so are the names starting with "xml" that the format reserves.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return !strings.HasPrefix(strings.ToLower(s), "xml")
}

func xmlScalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
