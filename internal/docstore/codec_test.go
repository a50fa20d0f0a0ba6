package docstore

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCodecFor(t *testing.T) {
	for _, name := range []string{"json", "XML", "yaml", "yml"} {
		if _, err := CodecFor(name); err != nil {
			t.Errorf("CodecFor(%q) error = %v", name, err)
		}
	}
	if _, err := CodecFor("toml"); err == nil {
		t.Error("CodecFor(toml) succeeded, want error")
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"db.json":        "json",
		"/a/b/DB.XML":    "xml",
		"library.yml":    "yaml",
		"library.yaml":   "yaml",
		"library.tar.gz": "",
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		if want == "" {
			if err == nil {
				t.Errorf("FormatFromPath(%q) = %q, want error", path, got)
			}
			continue
		}
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v, want %q", path, got, err, want)
		}
	}
}

func TestJSONDecode(t *testing.T) {
	got, err := JSON{}.Decode([]byte(`{"a": 1, "b": 1.5, "c": [true, null, "x"], "d": {"e": 12345678901234}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := Record{
		"a": int64(1),
		"b": 1.5,
		"c": []any{true, nil, "x"},
		"d": Record{"e": int64(12345678901234)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}
	for _, bad := range []string{`{`, `{} {}`, ``} {
		if _, err := (JSON{}).Decode([]byte(bad)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", bad)
		}
	}
}

func TestJSONEncode(t *testing.T) {
	got, err := JSON{}.Encode(Record{"url": "a<b>&c"})
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"url\": \"a<b>&c\"\n}\n"
	if string(got) != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	in := Record{
		"Books": []any{
			Record{"book_id": int64(1), "title": "Go", "price": 9.5},
		},
	}
	data, err := YAML{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "  - book_id: 1\n") {
		t.Errorf("Encode() = %q, want block style with 2 spaces indent", data)
	}
	out, err := YAML{}.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}

func TestXMLDecode(t *testing.T) {
	data := `<?xml version="1.0"?>
<Database>
  <Students id="s">
    <stud_id>1</stud_id>
    <name> Ann </name>
  </Students>
  <Students>
    <stud_id>2</stud_id>
  </Students>
  <Books/>
  <Note lang="en">hello</Note>
</Database>`
	got, err := XML{}.Decode([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	want := Record{
		"Students": []any{
			Record{"@id": "s", "stud_id": "1", "name": "Ann"},
			Record{"stud_id": "2"},
		},
		"Books": "",
		"Note":  Record{"@lang": "en", "#text": "hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}
	if _, err := (XML{}).Decode([]byte(`<Database><a>`)); err == nil {
		t.Error("Decode() of truncated input succeeded, want error")
	}
	if _, err := (XML{}).Decode([]byte(``)); err == nil {
		t.Error("Decode() of empty input succeeded, want error")
	}
}

func TestXMLEncode(t *testing.T) {
	got, err := XML{}.Encode([]any{
		Record{"borrow_transactionid": int64(1), "Student": Record{"stud_id": int64(2)}, "gone": nil},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>
<Database>
  <Borrow>
    <Student>
      <stud_id>2</stud_id>
    </Student>
    <borrow_transactionid>1</borrow_transactionid>
  </Borrow>
</Database>
`
	if string(got) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestXMLSingletonList(t *testing.T) {
	in := Record{"Books": []any{Record{"book_id": "1"}}}
	data, err := XML{}.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := XML{}.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := out.(Record)
	books := keyList(rec, "Books").Records()
	if len(books) != 1 || books[0]["book_id"] != "1" {
		t.Errorf("Books = %#v, want one book", books)
	}
}

func TestCanonicalID(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"7", "7", true},
		{int64(7), "7", true},
		{7, "7", true},
		{7.0, "7", true},
		{7.25, "7.25", true},
		{true, "true", true},
		{json.Number("12345678901234567890"), "12345678901234567890", true},
		{json.Number("7.50"), "7.5", true},
		{nil, "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalID(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("CanonicalID(%#v) = %q, %v, want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRecordMerge(t *testing.T) {
	base := Record{"a": int64(1), "n": Record{"x": "1", "y": "2"}}
	got := base.Merge(Record{"b": "2", "n": Record{"x": "3"}})
	want := Record{"a": int64(1), "b": "2", "n": Record{"x": "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %#v, want %#v", got, want)
	}
	if _, ok := base["b"]; ok {
		t.Error("Merge() modified the receiver")
	}
}

func TestRecordClone(t *testing.T) {
	base := Record{"n": Record{"x": "1"}, "l": []any{Record{"y": "2"}}}
	c := base.Clone()
	c["n"].(Record)["x"] = "changed"
	c["l"].([]any)[0].(Record)["y"] = "changed"
	if base["n"].(Record)["x"] != "1" || base["l"].([]any)[0].(Record)["y"] != "2" {
		t.Errorf("Clone() shares state with the original: %#v", base)
	}
}

func TestXMLEncodeRejectsInvalidNames(t *testing.T) {
	for _, key := range []string{"book title", "1st", "", "a:b", "xmlish", "@bad attr", "@"} {
		in := Record{"Books": []any{Record{"book_id": "B1", key: "x"}}}
		if got, err := (XML{}).Encode(in); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Encode() with key %q = %q, %v, want ErrUnsupported", key, got, err)
		}
	}
	in := Record{"Books": []any{Record{"book_id": "B1", "título": "x", "sub-title.v2": "y", "_x": "z"}}}
	if _, err := (XML{}).Encode(in); err != nil {
		t.Errorf("Encode() with valid names: %v", err)
	}
}

func TestXMLEncodeRejectsNestedLists(t *testing.T) {
	in := Record{"Books": []any{Record{"book_id": "B1", "tags": []any{[]any{"a", "b"}}}}}
	if _, err := (XML{}).Encode(in); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Encode() error = %v, want ErrUnsupported", err)
	}
}

func TestXMLEmptyListKeepsElement(t *testing.T) {
	data, err := XML{}.Encode([]any{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := XML{}.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	doc := &Document{Root: out}
	if got := Resolve(Auto, doc); got != Flat {
		t.Errorf("Resolve() = %s, want flat:\n%s", got.Name(), data)
	}
	if got := ids(t, doc, Flat, Borrows); len(got) != 0 {
		t.Errorf("borrows = %v, want none", got)
	}
}

func TestLargeIntegerIDs(t *testing.T) {
	const src = `{"Books":[{"book_id":12345678901234567890},{"book_id":12345678901234567891}]}`
	for _, c := range []Codec{JSON{}, YAML{}, XML{}} {
		t.Run(c.Name(), func(t *testing.T) {
			root, err := JSON{}.Decode([]byte(src))
			if err != nil {
				t.Fatal(err)
			}
			data, err := c.Encode(root)
			if err != nil {
				t.Fatal(err)
			}
			for _, lit := range []string{"12345678901234567890", "12345678901234567891"} {
				if !strings.Contains(string(data), lit) {
					t.Errorf("Encode() lost %s:\n%s", lit, data)
				}
			}
			if c.Name() == "yaml" && strings.Contains(string(data), `"1234`) {
				t.Errorf("Encode() quoted integers:\n%s", data)
			}
			back, err := c.Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(t, &Document{Root: back}, Collections, Books)
			want := []string{"12345678901234567890", "12345678901234567891"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ids = %v, want %v", got, want)
			}
		})
	}
}
