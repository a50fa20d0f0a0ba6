// Package models defines the request, response and entity types of the API.
package models

import (
	"reflect"

	"github.com/maruel/bibliodb/internal/docstore"
)

// Student is a library member. In the nested shape the id field is
// borrower_id instead of stud_id.
type Student struct {
	StudID     string  `json:"stud_id" jsonschema:"description=Unique student identifier"`
	BorrowerID string  `json:"borrower_id,omitempty" jsonschema:"description=Student identifier in the nested shape"`
	Name       string  `json:"stud_name,omitempty" jsonschema:"description=Full name"`
	Email      string  `json:"stud_email,omitempty" jsonschema:"description=Contact email address"`
	Phone      string  `json:"stud_phone,omitempty"`
	Address    string  `json:"stud_address,omitempty"`
	Status     string  `json:"borrow_status,omitempty" jsonschema:"description=Borrow status carried by the student record"`
	Fine       float64 `json:"fine_amount,omitempty" jsonschema:"description=Outstanding fine"`
}

// Author wrote one or more books.
type Author struct {
	AutID string `json:"aut_id" jsonschema:"description=Unique author identifier"`
	Name  string `json:"aut_name,omitempty" jsonschema:"description=Full name"`
}

// Book is a catalog entry.
type Book struct {
	BookID    string  `json:"book_id" jsonschema:"description=Unique book identifier"`
	Title     string  `json:"book_title,omitempty" jsonschema:"description=Title"`
	Year      int     `json:"book_year,omitempty" jsonschema:"description=Publication year"`
	Publisher string  `json:"book_publisher,omitempty"`
	Author    *Author `json:"Author,omitempty" jsonschema:"description=Embedded author"`
}

// Borrow is one borrow transaction. In the flat shape it embeds its student
// and book.
type Borrow struct {
	TransactionID string   `json:"borrow_transactionid" jsonschema:"description=Unique transaction identifier"`
	Date          string   `json:"borrow_date,omitempty" jsonschema:"description=Borrow date (YYYY-MM-DD)"`
	DueDate       string   `json:"borrow_due_date,omitempty" jsonschema:"description=Due date (YYYY-MM-DD)"`
	Status        string   `json:"borrow_status,omitempty" jsonschema:"description=Borrow status,enum=borrowed,enum=returned,enum=overdue"`
	Fine          float64  `json:"fine_amount,omitempty" jsonschema:"description=Fine charged for this borrow"`
	StudID        string   `json:"stud_id,omitempty" jsonschema:"description=Borrowing student in the collections shape"`
	BookID        string   `json:"book_id,omitempty" jsonschema:"description=Borrowed book in the collections and nested shapes"`
	Student       *Student `json:"Student,omitempty" jsonschema:"description=Embedded student in the flat shape"`
	Book          *Book    `json:"Book,omitempty" jsonschema:"description=Embedded book in the flat shape"`
}

// EntityType returns the documented Go type of kind.
func EntityType(kind docstore.Kind) reflect.Type {
	switch kind {
	case docstore.Students:
		return reflect.TypeFor[Student]()
	case docstore.Books:
		return reflect.TypeFor[Book]()
	case docstore.Authors:
		return reflect.TypeFor[Author]()
	default:
		return reflect.TypeFor[Borrow]()
	}
}
