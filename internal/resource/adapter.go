// Package resource implements the CRUD contract over the logical collections
// of a document store.
//
// Every operation is one load–mutate–save cycle. Writes apply to every site
// currently holding the addressed id, so an entity embedded in several
// records (flat shape) is updated in all of them; Result.Affected reports how
// many sites a write touched.
package resource

import (
	"fmt"
	"sync"

	"github.com/maruel/bibliodb/internal/docstore"
	"github.com/maruel/ksid"
)

// Result is the outcome of a write.
type Result struct {
	// Record is the entity as written. For fan-out writes it is the value
	// written at the first site.
	Record docstore.Record
	// Affected is the number of sites written.
	Affected int
}

// CreateOptions tunes Create.
type CreateOptions struct {
	// Parent is the id of the owning record for kinds nested under another
	// one, e.g. the borrower of a borrow in the nested shape.
	Parent string
}

// Adapter exposes List, Get, Create, Replace, Patch, Remove and Broadcast
// over a Store whose documents follow shape.
type Adapter struct {
	store *docstore.Store
	shape docstore.Shape
	newID func() string

	mu       sync.Mutex
	resolved docstore.Shape
}

// New returns an Adapter over store.
func New(store *docstore.Store, shape docstore.Shape) *Adapter {
	return &Adapter{
		store: store,
		shape: shape,
		newID: func() string { return ksid.NewID().String() },
	}
}

// Store returns the underlying store.
func (a *Adapter) Store() *docstore.Store {
	return a.store
}

// Shape returns the configured shape.
func (a *Adapter) Shape() docstore.Shape {
	return a.shape
}

// shapeOf returns the concrete shape of doc. An auto shape is detected on the
// first non-empty document loaded and kept afterwards, so that a flat document
// emptied of its borrows stays flat.
func (a *Adapter) shapeOf(doc *docstore.Document) docstore.Shape {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved != nil {
		return a.resolved
	}
	s := docstore.Resolve(a.shape, doc)
	if doc.Root != nil {
		a.resolved = s
	}
	return s
}

// List returns the derived collection of kind.
func (a *Adapter) List(kind docstore.Kind) ([]docstore.Record, error) {
	var out []docstore.Record
	err := a.store.View(func(doc *docstore.Document) error {
		var err error
		out, err = docstore.Derive(doc, a.shapeOf(doc), kind)
		return err
	})
	return out, err
}

// Get returns the first entity of kind whose id is id.
func (a *Adapter) Get(kind docstore.Kind, id string) (docstore.Record, error) {
	var out docstore.Record
	err := a.store.View(func(doc *docstore.Document) error {
		shape := a.shapeOf(doc)
		recs, err := docstore.Derive(doc, shape, kind)
		if err != nil {
			return err
		}
		field := shape.IDField(doc, kind)
		for _, rec := range recs {
			if got, ok := rec.ID(field); ok && got == id {
				out = rec
				return nil
			}
		}
		return notFound(kind, id)
	})
	return out, err
}

// Create adds body to the collection of kind.
//
// When the body carries no id, one is generated. For kinds that only exist
// embedded in other records (flat shape), Create is a broadcast: body is set
// on every embedding site and returned unchanged.
func (a *Adapter) Create(kind docstore.Kind, body docstore.Record, opts CreateOptions) (Result, error) {
	var res Result
	err := a.store.Update(func(doc *docstore.Document) error {
		shape := a.shapeOf(doc)
		if shape.Embedded(doc, kind) {
			var err error
			res, err = a.broadcast(doc, kind, body)
			return err
		}
		l, err := shape.InsertList(doc, kind, opts.Parent)
		if err != nil {
			return err
		}
		rec := body.Clone()
		if rec == nil {
			rec = docstore.Record{}
		}
		field := shape.IDField(doc, kind)
		if _, ok := rec.ID(field); !ok {
			rec[field] = a.newID()
		}
		l.Append(rec)
		res = Result{Record: rec, Affected: 1}
		return nil
	})
	return res, err
}

// Replace overwrites every site holding id with body.
//
// The id field is copied from the stored entity when body has none.
func (a *Adapter) Replace(kind docstore.Kind, id string, body docstore.Record) (Result, error) {
	var res Result
	err := a.store.Update(func(doc *docstore.Document) error {
		field := a.shapeOf(doc).IDField(doc, kind)
		if err := checkID(body, field, id); err != nil {
			return err
		}
		_, hasID := body[field]
		n, err := a.rewrite(doc, kind, id, func(cur docstore.Record) docstore.Record {
			out := body.Clone()
			if out == nil {
				out = docstore.Record{}
			}
			if !hasID {
				out[field] = cur[field]
			}
			if res.Record == nil {
				res.Record = out
			}
			return out
		})
		res.Affected = n
		return err
	})
	return res, err
}

// Patch merges the fields of partial into every site holding id. Fields
// absent from partial are preserved.
func (a *Adapter) Patch(kind docstore.Kind, id string, partial docstore.Record) (Result, error) {
	var res Result
	err := a.store.Update(func(doc *docstore.Document) error {
		if err := checkID(partial, a.shapeOf(doc).IDField(doc, kind), id); err != nil {
			return err
		}
		n, err := a.rewrite(doc, kind, id, func(cur docstore.Record) docstore.Record {
			out := cur.Merge(partial)
			if res.Record == nil {
				res.Record = out
			}
			return out
		})
		res.Affected = n
		return err
	})
	return res, err
}

// Remove deletes the entity with id: list items are dropped and embedding
// fields are nulled. It returns the number of sites affected.
func (a *Adapter) Remove(kind docstore.Kind, id string) (int, error) {
	n := 0
	err := a.store.Update(func(doc *docstore.Document) error {
		shape := a.shapeOf(doc)
		sites, err := shape.Sites(doc, kind)
		if err != nil {
			return err
		}
		field := shape.IDField(doc, kind)
		for _, l := range sites.Lists {
			items := l.Items()
			kept := make([]any, 0, len(items))
			for _, item := range items {
				if matches(item, field, id) {
					n++
					continue
				}
				kept = append(kept, item)
			}
			if len(kept) != len(items) {
				l.Store(kept)
			}
		}
		for _, e := range sites.Embeds {
			if rec, ok := e.Get(); ok && matches(rec, field, id) {
				e.Clear()
				n++
			}
		}
		if n == 0 {
			return notFound(kind, id)
		}
		return nil
	})
	return n, err
}

// Broadcast sets body on every site embedding an entity of kind, whatever
// entity it currently holds.
func (a *Adapter) Broadcast(kind docstore.Kind, body docstore.Record) (Result, error) {
	var res Result
	err := a.store.Update(func(doc *docstore.Document) error {
		var err error
		res, err = a.broadcast(doc, kind, body)
		return err
	})
	return res, err
}

func (a *Adapter) broadcast(doc *docstore.Document, kind docstore.Kind, body docstore.Record) (Result, error) {
	sites, err := a.shapeOf(doc).Sites(doc, kind)
	if err != nil {
		return Result{}, err
	}
	if len(sites.Embeds) == 0 {
		return Result{}, fmt.Errorf("%w: no record embeds a %s", docstore.ErrUnsupported, kind.Singular())
	}
	for _, e := range sites.Embeds {
		e.Set(body.Clone())
	}
	return Result{Record: body, Affected: len(sites.Embeds)}, nil
}

// rewrite replaces every record of kind holding id by fn(record).
func (a *Adapter) rewrite(doc *docstore.Document, kind docstore.Kind, id string, fn func(docstore.Record) docstore.Record) (int, error) {
	shape := a.shapeOf(doc)
	sites, err := shape.Sites(doc, kind)
	if err != nil {
		return 0, err
	}
	field := shape.IDField(doc, kind)
	n := 0
	for _, l := range sites.Lists {
		items := l.Items()
		changed := false
		for i, item := range items {
			if matches(item, field, id) {
				rec, _ := item.(docstore.Record)
				items[i] = fn(rec)
				changed = true
				n++
			}
		}
		if changed {
			l.Store(items)
		}
	}
	for _, e := range sites.Embeds {
		if rec, ok := e.Get(); ok && matches(rec, field, id) {
			e.Set(fn(rec))
			n++
		}
	}
	if n == 0 {
		return 0, notFound(kind, id)
	}
	return n, nil
}

func matches(item any, field, id string) bool {
	rec, ok := item.(docstore.Record)
	if !ok {
		return false
	}
	got, ok := rec.ID(field)
	return ok && got == id
}

// checkID rejects a body that names a different entity than id or clears the
// id field.
func checkID(body docstore.Record, field, id string) error {
	if v, ok := body[field]; ok && v == nil {
		return fmt.Errorf("%w: body %s is null, not %q", docstore.ErrIDMismatch, field, id)
	}
	if got, ok := body.ID(field); ok && got != id {
		return fmt.Errorf("%w: body %s is %q, not %q", docstore.ErrIDMismatch, field, got, id)
	}
	return nil
}

func notFound(kind docstore.Kind, id string) error {
	return fmt.Errorf("%w: %s %q", docstore.ErrNotFound, kind.Singular(), id)
}
