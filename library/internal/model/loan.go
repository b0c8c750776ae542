package model

import (
	"time"

	"github.com/google/uuid"
)

// Loan is one ledger entry: open until ReturnedAt is set, immutable after.
type Loan struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"memberId" db:"member_id"`
	BookID     uuid.UUID  `json:"bookId" db:"book_id"`
	BorrowedAt time.Time  `json:"borrowedAt" db:"borrowed_at"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
}

func (l Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// LoanRecord is a ledger entry joined with what the classifier needs from the book.
type LoanRecord struct {
	Loan
	Title                  Bilingual `db:"title"`
	NumberOfBorrowableDays int       `db:"number_of_borrowable_days"`
}

type LoanStatus struct {
	DueDate     time.Time `json:"dueDate"`
	DaysLeft    *int      `json:"daysLeft"`
	HoursLeft   *int      `json:"hoursLeft"`
	WarningFlag bool      `json:"warningFlag"`
	ExpiredFlag bool      `json:"expiredFlag"`
}

type LoanView struct {
	BorrowedBookID uuid.UUID  `json:"borrowedBookId"`
	Title          Bilingual  `json:"title"`
	BorrowedAt     time.Time  `json:"borrowedAt"`
	ReturnedAt     *time.Time `json:"returnedAt,omitempty"`
	IsReturned     bool       `json:"isReturned"`
	LoanStatus
}

type BorrowRequest struct {
	BookID uuid.UUID `json:"bookId" validate:"required"`
}

type BorrowResult struct {
	Loan    Loan      `json:"loan"`
	DueDate time.Time `json:"dueDate"`
	Message string    `json:"message"`
}

type ReturnResult struct {
	Loan       Loan   `json:"loan"`
	OnTime     bool   `json:"onTime"`
	ReturnRate int    `json:"returnRate"`
	Message    string `json:"message"`
}
