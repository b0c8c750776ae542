package service

import (
	"math"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/model"
)

// WarningWindow is how close to the due date an open loan starts warning.
const WarningWindow = 12 * time.Hour

// Classify derives the due date and overdue flags of a ledger row at now.
// Returned rows never flag and carry no time left.
func Classify(rec model.LoanRecord, now time.Time) model.LoanView {
	due := rec.BorrowedAt.AddDate(0, 0, rec.NumberOfBorrowableDays)
	view := model.LoanView{
		BorrowedBookID: rec.BookID,
		Title:          rec.Title,
		BorrowedAt:     rec.BorrowedAt,
		ReturnedAt:     rec.ReturnedAt,
		IsReturned:     !rec.IsOpen(),
		LoanStatus:     model.LoanStatus{DueDate: due},
	}
	if !rec.IsOpen() {
		return view
	}

	left := due.Sub(now)
	hours := int(math.Ceil(left.Hours()))
	days := int(math.Ceil(left.Hours() / 24))
	view.HoursLeft = &hours
	view.DaysLeft = &days
	view.WarningFlag = hours > 0 && hours <= int(WarningWindow/time.Hour)
	view.ExpiredFlag = now.After(due)
	return view
}
