package docstore

import (
	"fmt"
	"strings"
)

// Document is the in-memory content of the backing file for one operation.
type Document struct {
	Root any
}

// record returns the top-level mapping, creating it in an empty document.
func (d *Document) record() (Record, error) {
	switch t := d.Root.(type) {
	case nil:
		r := Record{}
		d.Root = r
		return r, nil
	case Record:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: top-level value is %T, want a mapping", ErrMalformedDocument, d.Root)
	}
}

// List is a sequence of records stored at one place of the document.
type List struct {
	get func() any
	set func(any)
}

// keyList returns the list stored under key in parent.
func keyList(parent Record, key string) List {
	return List{
		get: func() any { return parent[key] },
		set: func(v any) { parent[key] = v },
	}
}

// Items returns the list content. A lone mapping is a list of one item and an
// empty scalar an empty list, as produced by the XML codec.
func (l List) Items() []any {
	switch t := l.get().(type) {
	case nil:
		return nil
	case []any:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []any{t}
	default:
		return []any{t}
	}
}

// Records returns the items that are records.
func (l List) Records() []Record {
	var out []Record
	for _, item := range l.Items() {
		if rec, ok := asRecord(item); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Store replaces the list content.
func (l List) Store(items []any) {
	if items == nil {
		items = []any{}
	}
	l.set(items)
}

// Append adds rec at the end of the list.
func (l List) Append(rec Record) {
	items := l.Items()
	out := make([]any, 0, len(items)+1)
	out = append(out, items...)
	l.set(append(out, rec))
}

// Embed is a field of a parent record holding a single embedded record.
type Embed struct {
	Parent Record
	Key    string
}

// Get returns the embedded record, if the field holds one.
func (e Embed) Get() (Record, bool) {
	return asRecord(e.Parent[e.Key])
}

// Set stores rec in the field.
func (e Embed) Set(rec Record) {
	e.Parent[e.Key] = rec
}

// Clear nulls the field.
func (e Embed) Clear() {
	e.Parent[e.Key] = nil
}

// Sites are the places of a document holding records of one kind, in
// document order: lists first, then embedding fields.
type Sites struct {
	Lists  []List
	Embeds []Embed
}

// Shape describes where each kind lives in a document.
type Shape interface {
	// Name returns the shape name.
	Name() string
	// IDField returns the field holding the id of kind.
	IDField(doc *Document, kind Kind) string
	// Sites returns every site for kind.
	Sites(doc *Document, kind Kind) (Sites, error)
	// Embedded reports whether kind only exists embedded in other records. In
	// that case creating one broadcasts it to every embedding site.
	Embedded(doc *Document, kind Kind) bool
	// InsertList returns the list new records of kind are appended to. parent
	// names the owning record for kinds nested under another one.
	InsertList(doc *Document, kind Kind, parent string) (List, error)
}

// Shapes.
var (
	Flat        Shape = flatShape{}
	Collections Shape = collectionsShape{}
	Nested      Shape = nestedShape{}
	Auto        Shape = autoShape{}
)

// ShapeByName returns the shape with the given name.
func ShapeByName(name string) (Shape, error) {
	for _, s := range []Shape{Auto, Flat, Collections, Nested} {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown shape %q", name)
}

// Resolve returns the concrete shape of doc; it is shape itself unless shape
// is Auto.
func Resolve(shape Shape, doc *Document) Shape {
	if a, ok := shape.(autoShape); ok {
		return a.detect(doc)
	}
	return shape
}

func idField(kind Kind) string {
	switch kind {
	case Students:
		return "stud_id"
	case Books:
		return "book_id"
	case Authors:
		return "aut_id"
	default:
		return "borrow_transactionid"
	}
}

// embeddedAuthors returns the Author fields of the books that embed one.
func embeddedAuthors(books List) []Embed {
	var out []Embed
	for _, book := range books.Records() {
		e := Embed{Parent: book, Key: "Author"}
		if _, ok := e.Get(); ok {
			out = append(out, e)
		}
	}
	return out
}

// flatShape is an array of borrows embedding their student and book.
type flatShape struct{}

func (flatShape) Name() string { return "flat" }

func (flatShape) IDField(_ *Document, kind Kind) string { return idField(kind) }

func (flatShape) borrows(doc *Document) (List, error) {
	switch t := doc.Root.(type) {
	case nil, []any:
		return List{
			get: func() any { return doc.Root },
			set: func(v any) { doc.Root = v },
		}, nil
	case Record:
		// XML stores the array as repeated <Borrow> elements under the root.
		return keyList(t, xmlFlatItem), nil
	default:
		return List{}, fmt.Errorf("%w: top-level value is %T, want a list of borrows", ErrMalformedDocument, doc.Root)
	}
}

func (s flatShape) Sites(doc *Document, kind Kind) (Sites, error) {
	borrows, err := s.borrows(doc)
	if err != nil {
		return Sites{}, err
	}
	switch kind {
	case Borrows:
		return Sites{Lists: []List{borrows}}, nil
	case Students, Books:
		key := "Student"
		if kind == Books {
			key = "Book"
		}
		var embeds []Embed
		for _, b := range borrows.Records() {
			embeds = append(embeds, Embed{Parent: b, Key: key})
		}
		return Sites{Embeds: embeds}, nil
	case Authors:
		var embeds []Embed
		for _, b := range borrows.Records() {
			if book, ok := (Embed{Parent: b, Key: "Book"}).Get(); ok {
				embeds = append(embeds, Embed{Parent: book, Key: "Author"})
			}
		}
		return Sites{Embeds: embeds}, nil
	default:
		return Sites{}, fmt.Errorf("%w: kind %q", ErrUnsupported, kind)
	}
}

func (flatShape) Embedded(_ *Document, kind Kind) bool { return kind != Borrows }

func (s flatShape) InsertList(doc *Document, kind Kind, _ string) (List, error) {
	if kind != Borrows {
		return List{}, fmt.Errorf("%w: %s records only exist embedded in borrows", ErrUnsupported, kind.Singular())
	}
	return s.borrows(doc)
}

// collectionsShape holds one top-level collection per kind.
type collectionsShape struct{}

func (collectionsShape) Name() string { return "collections" }

func (collectionsShape) IDField(_ *Document, kind Kind) string { return idField(kind) }

func collectionKey(kind Kind) string {
	switch kind {
	case Students:
		return "Students"
	case Books:
		return "Books"
	case Authors:
		return "Authors"
	default:
		return "Borrows"
	}
}

func (collectionsShape) Sites(doc *Document, kind Kind) (Sites, error) {
	root, err := doc.record()
	if err != nil {
		return Sites{}, err
	}
	sites := Sites{Lists: []List{keyList(root, collectionKey(kind))}}
	if kind == Authors {
		sites.Embeds = embeddedAuthors(keyList(root, "Books"))
	}
	return sites, nil
}

func (collectionsShape) Embedded(*Document, Kind) bool { return false }

func (collectionsShape) InsertList(doc *Document, kind Kind, _ string) (List, error) {
	root, err := doc.record()
	if err != nil {
		return List{}, err
	}
	return keyList(root, collectionKey(kind)), nil
}

// nestedShape holds borrowers, each holding batches of borrows.
type nestedShape struct{}

func (nestedShape) Name() string { return "nested" }

func (nestedShape) IDField(_ *Document, kind Kind) string {
	if kind == Students {
		return "borrower_id"
	}
	return idField(kind)
}

func (s nestedShape) Sites(doc *Document, kind Kind) (Sites, error) {
	root, err := doc.record()
	if err != nil {
		return Sites{}, err
	}
	switch kind {
	case Students:
		return Sites{Lists: []List{keyList(root, "Borrowers")}}, nil
	case Borrows:
		var lists []List
		for _, borrower := range keyList(root, "Borrowers").Records() {
			for _, batch := range keyList(borrower, "BorrowBatches").Records() {
				lists = append(lists, keyList(batch, "Borrows"))
			}
		}
		return Sites{Lists: lists}, nil
	case Authors:
		return Sites{
			Lists:  []List{keyList(root, "Authors")},
			Embeds: embeddedAuthors(keyList(root, "Books")),
		}, nil
	default:
		return Sites{Lists: []List{keyList(root, "Books")}}, nil
	}
}

func (nestedShape) Embedded(*Document, Kind) bool { return false }

func (s nestedShape) InsertList(doc *Document, kind Kind, parent string) (List, error) {
	root, err := doc.record()
	if err != nil {
		return List{}, err
	}
	switch kind {
	case Students:
		return keyList(root, "Borrowers"), nil
	case Authors:
		return keyList(root, "Authors"), nil
	case Books:
		return keyList(root, "Books"), nil
	}
	if parent == "" {
		return List{}, fmt.Errorf("%w: borrows are nested under borrowers, name the borrower", ErrUnsupported)
	}
	field := s.IDField(doc, Students)
	for _, borrower := range keyList(root, "Borrowers").Records() {
		if id, ok := borrower.ID(field); !ok || id != parent {
			continue
		}
		batches := keyList(borrower, "BorrowBatches")
		items := batches.Items()
		if len(items) > 0 {
			if last, ok := asRecord(items[len(items)-1]); ok {
				return keyList(last, "Borrows"), nil
			}
		}
		batch := Record{"Borrows": []any{}}
		batches.Append(batch)
		return keyList(batch, "Borrows"), nil
	}
	return List{}, fmt.Errorf("%w: Student %q", ErrNotFound, parent)
}

// autoShape detects the shape of every document it is given.
type autoShape struct{}

func (autoShape) Name() string { return "auto" }

func (autoShape) detect(doc *Document) Shape {
	rec, ok := doc.Root.(Record)
	if !ok {
		return Flat
	}
	if _, ok := rec["Borrowers"]; ok {
		return Nested
	}
	if _, ok := rec[xmlFlatItem]; ok {
		return Flat
	}
	return Collections
}

func (a autoShape) IDField(doc *Document, kind Kind) string {
	return a.detect(doc).IDField(doc, kind)
}

func (a autoShape) Sites(doc *Document, kind Kind) (Sites, error) {
	return a.detect(doc).Sites(doc, kind)
}

func (a autoShape) Embedded(doc *Document, kind Kind) bool {
	return a.detect(doc).Embedded(doc, kind)
}

func (a autoShape) InsertList(doc *Document, kind Kind, parent string) (List, error) {
	return a.detect(doc).InsertList(doc, kind, parent)
}
