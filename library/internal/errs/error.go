package errs

import (
	"errors"
	"strings"
)

type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindReference
	KindStateConflict
	KindNotBorrowable
	KindOutOfStock
	KindLowStanding
	KindAgeRestricted
	KindAlreadyBorrowed
	KindNotBorrowed
	KindAlreadyReturned
)

var kindNames = map[Kind]string{
	KindValidation:      "validation error",
	KindNotFound:        "not found",
	KindConflict:        "conflict",
	KindReference:       "reference error",
	KindStateConflict:   "state conflict",
	KindNotBorrowable:   "not borrowable",
	KindOutOfStock:      "out of stock",
	KindLowStanding:     "low standing",
	KindAgeRestricted:   "age restricted",
	KindAlreadyBorrowed: "already borrowed",
	KindNotBorrowed:     "not borrowed",
	KindAlreadyReturned: "already returned",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the only error type the core returns to callers. Two errors are
// considered equal by errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if len(e.Details) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(e.Details, "; ")
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation error"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "already exists"}
	ErrReference     = &Error{Kind: KindReference, Message: "referenced entity does not exist"}
	ErrStateConflict = &Error{Kind: KindStateConflict, Message: "operation is not allowed in the current state"}

	ErrNotBorrowable   = &Error{Kind: KindNotBorrowable, Message: "this book is not borrowable"}
	ErrOutOfStock      = &Error{Kind: KindOutOfStock, Message: "no available copies left"}
	ErrLowStanding     = &Error{Kind: KindLowStanding, Message: "member cannot borrow books with a return rate below 30"}
	ErrAgeRestricted   = &Error{Kind: KindAgeRestricted, Message: "member does not meet the minimum age requirement to borrow this book"}
	ErrAlreadyBorrowed = &Error{Kind: KindAlreadyBorrowed, Message: "member already holds an unreturned copy of this book"}
	ErrNotBorrowed     = &Error{Kind: KindNotBorrowed, Message: "book was not borrowed by this member"}
	ErrAlreadyReturned = &Error{Kind: KindAlreadyReturned, Message: "book has already been returned"}
)

func Validation(details ...string) error {
	return &Error{Kind: KindValidation, Message: "validation error", Details: details}
}

func NotFound(resource string) error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Reference(msg string) error {
	return &Error{Kind: KindReference, Message: msg}
}

func StateConflict(msg string) error {
	return &Error{Kind: KindStateConflict, Message: msg}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
