package model

import (
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	Name            string      `json:"name" db:"name" validate:"required"`
	Username        string      `json:"username" db:"username" validate:"required"`
	Email           string      `json:"email" db:"email" validate:"required,email"`
	BirthDate       time.Time   `json:"birthDate" db:"birth_date"`
	ReturnRate      int         `json:"returnRate" db:"return_rate"`
	SubscribedBooks []uuid.UUID `json:"subscribedBooks" db:"-"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// Age is the number of completed years between the birth date and now.
func (m Member) Age(now time.Time) int {
	now = now.In(m.BirthDate.Location())
	years := now.Year() - m.BirthDate.Year()
	if now.Month() < m.BirthDate.Month() ||
		(now.Month() == m.BirthDate.Month() && now.Day() < m.BirthDate.Day()) {
		years--
	}
	return years
}

func (m Member) IsSubscribed(bookID uuid.UUID) bool {
	for _, id := range m.SubscribedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}

type RegisterMemberRequest struct {
	Name            string      `json:"name" validate:"required"`
	Username        string      `json:"username" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	BirthDate       *Date       `json:"birthDate" validate:"required"`
	SubscribedBooks []uuid.UUID `json:"subscribedBooks"`
}

type MemberPatch struct {
	Name            Optional[string]      `json:"name"`
	Username        Optional[string]      `json:"username"`
	Email           Optional[string]      `json:"email"`
	BirthDate       Optional[Date]        `json:"birthDate"`
	SubscribedBooks Optional[[]uuid.UUID] `json:"subscribedBooks"`
}

func (p MemberPatch) ApplyTo(m *Member) {
	p.Name.ApplyTo(&m.Name)
	p.Username.ApplyTo(&m.Username)
	p.Email.ApplyTo(&m.Email)
	if p.BirthDate.Set {
		m.BirthDate = p.BirthDate.Value.Time
	}
	p.SubscribedBooks.ApplyTo(&m.SubscribedBooks)
}

type MemberFilter struct {
	PageRequest
	Name     string
	Username string
	Email    string
}

type MemberSummary struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Username           string    `json:"username" db:"username"`
	Email              string    `json:"email" db:"email"`
	ReturnRate         int       `json:"returnRate" db:"return_rate"`
	BorrowedBooksCount int       `json:"borrowedBooksCount" db:"borrowed_books_count"`
}

type SubscriptionResult struct {
	BookID     uuid.UUID `json:"bookId"`
	Subscribed bool      `json:"subscribed"`
	Message    string    `json:"message"`
}
