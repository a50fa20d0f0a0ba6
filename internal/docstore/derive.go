package docstore

// Derive returns the logical collection of kind held by doc.
//
// Records are gathered from every site of the kind in document order and
// deduplicated by id: the first occurrence wins. Records without an id are
// kept as is.
func Derive(doc *Document, shape Shape, kind Kind) ([]Record, error) {
	sites, err := shape.Sites(doc, kind)
	if err != nil {
		return nil, err
	}
	field := shape.IDField(doc, kind)
	seen := make(map[string]struct{})
	out := []Record{}
	add := func(rec Record) {
		if id, ok := rec.ID(field); ok {
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
		}
		out = append(out, rec)
	}
	for _, l := range sites.Lists {
		for _, rec := range l.Records() {
			add(rec)
		}
	}
	for _, e := range sites.Embeds {
		if rec, ok := e.Get(); ok {
			add(rec)
		}
	}
	return out, nil
}
