package docstore

import "fmt"

// Kind is a logical entity type. Its value is the collection path segment.
type Kind string

// Entity kinds.
const (
	Students Kind = "students"
	Books    Kind = "books"
	Authors  Kind = "authors"
	Borrows  Kind = "borrows"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{Students, Books, Authors, Borrows}

// ParseKind returns the kind named by a collection path segment.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown collection %q", ErrNotFound, s)
}

// Singular returns the human readable entity name.
func (k Kind) Singular() string {
	switch k {
	case Students:
		return "Student"
	case Books:
		return "Book"
	case Authors:
		return "Author"
	case Borrows:
		return "Borrow"
	default:
		return string(k)
	}
}
