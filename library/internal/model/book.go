package model

import (
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID                      uuid.UUID   `json:"id" db:"id"`
	Title                   Bilingual   `json:"title" db:"title"`
	Description             Description `json:"description" db:"description"`
	ISBN                    string      `json:"isbn" db:"isbn" validate:"required,isbn"`
	Genre                   string      `json:"genre" db:"genre" validate:"required"`
	NumberOfAvailableCopies int         `json:"numberOfAvailableCopies" db:"number_of_available_copies" validate:"min=0"`
	IsBorrowable            bool        `json:"isBorrowable" db:"is_borrowable"`
	NumberOfBorrowableDays  int         `json:"numberOfBorrowableDays" db:"number_of_borrowable_days" validate:"min=0"`
	IsOpenToReviews         bool        `json:"isOpenToReviews" db:"is_open_to_reviews"`
	MinAge                  int         `json:"minAge" db:"min_age" validate:"min=0"`
	AuthorID                uuid.UUID   `json:"authorId" db:"author_id" validate:"required"`
	CoverImageURL           string      `json:"coverImageUrl,omitempty" db:"cover_image_url" validate:"omitempty,image"`
	PublishedDate           *time.Time  `json:"publishedDate,omitempty" db:"published_date"`
	IsPublished             bool        `json:"isPublished" db:"is_published"`
	CreatedAt               time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time   `json:"updatedAt" db:"updated_at"`
}

// DueDate is the last instant a copy borrowed at borrowedAt may be returned on time.
func (b Book) DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.AddDate(0, 0, b.NumberOfBorrowableDays)
}

type CreateBookRequest struct {
	Title                   Bilingual   `json:"title"`
	Description             Description `json:"description"`
	ISBN                    string      `json:"isbn"`
	Genre                   string      `json:"genre"`
	NumberOfAvailableCopies int         `json:"numberOfAvailableCopies"`
	IsBorrowable            bool        `json:"isBorrowable"`
	NumberOfBorrowableDays  int         `json:"numberOfBorrowableDays"`
	IsOpenToReviews         bool        `json:"isOpenToReviews"`
	MinAge                  int         `json:"minAge"`
	AuthorID                uuid.UUID   `json:"authorId"`
	PublishedDate           *Date       `json:"publishedDate"`
	CoverImageURL           string      `json:"-"`
}

// BookPatch carries only the fields the caller sent. IsPublished is decoded
// so that an attempt to flip it through an edit can be rejected.
type BookPatch struct {
	Title                   BilingualPatch      `json:"title"`
	Description             BilingualPatch      `json:"description"`
	ISBN                    Optional[string]    `json:"isbn"`
	Genre                   Optional[string]    `json:"genre"`
	NumberOfAvailableCopies Optional[int]       `json:"numberOfAvailableCopies"`
	IsBorrowable            Optional[bool]      `json:"isBorrowable"`
	NumberOfBorrowableDays  Optional[int]       `json:"numberOfBorrowableDays"`
	IsOpenToReviews         Optional[bool]      `json:"isOpenToReviews"`
	MinAge                  Optional[int]       `json:"minAge"`
	AuthorID                Optional[uuid.UUID] `json:"authorId"`
	PublishedDate           Optional[*Date]     `json:"publishedDate"`
	IsPublished             Optional[bool]      `json:"isPublished"`
	CoverImageURL           Optional[string]    `json:"-"`
}

func (p BookPatch) ApplyTo(b *Book) {
	p.Title.ApplyTo(&b.Title)
	p.Description.ApplyToDescription(&b.Description)
	p.ISBN.ApplyTo(&b.ISBN)
	p.Genre.ApplyTo(&b.Genre)
	p.NumberOfAvailableCopies.ApplyTo(&b.NumberOfAvailableCopies)
	p.IsBorrowable.ApplyTo(&b.IsBorrowable)
	p.NumberOfBorrowableDays.ApplyTo(&b.NumberOfBorrowableDays)
	p.IsOpenToReviews.ApplyTo(&b.IsOpenToReviews)
	p.MinAge.ApplyTo(&b.MinAge)
	p.AuthorID.ApplyTo(&b.AuthorID)
	p.CoverImageURL.ApplyTo(&b.CoverImageURL)
	if p.PublishedDate.Set {
		b.PublishedDate = nil
		if d := p.PublishedDate.Value; d != nil && !d.IsZero() {
			t := d.Time
			b.PublishedDate = &t
		}
	}
}

type BookFilter struct {
	PageRequest
	Title     string
	ISBN      string
	Genre     string
	Published *bool
}

type PublishedBookFilter struct {
	PageRequest
	Genre string
}

// BookCard is a row of the public, localized catalog listing.
type BookCard struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Genre         string    `json:"genre" db:"genre"`
	CoverImageURL string    `json:"coverImageUrl" db:"cover_image_url"`
	IsBorrowable  bool      `json:"isBorrowable" db:"is_borrowable"`
}

// PublicBook is the localized detail view of a published book.
type PublicBook struct {
	ID                      uuid.UUID  `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	ISBN                    string     `json:"isbn"`
	Genre                   string     `json:"genre"`
	NumberOfAvailableCopies int        `json:"numberOfAvailableCopies"`
	IsBorrowable            bool       `json:"isBorrowable"`
	NumberOfBorrowableDays  int        `json:"numberOfBorrowableDays"`
	IsOpenToReviews         bool       `json:"isOpenToReviews"`
	AuthorID                uuid.UUID  `json:"authorId"`
	CoverImageURL           string     `json:"coverImageUrl"`
	PublishedDate           *time.Time `json:"publishedDate,omitempty"`
}

func (b Book) Public(lang Lang) PublicBook {
	return PublicBook{
		ID:                      b.ID,
		Title:                   b.Title.In(lang),
		Description:             b.Description.In(lang),
		ISBN:                    b.ISBN,
		Genre:                   b.Genre,
		NumberOfAvailableCopies: b.NumberOfAvailableCopies,
		IsBorrowable:            b.IsBorrowable,
		NumberOfBorrowableDays:  b.NumberOfBorrowableDays,
		IsOpenToReviews:         b.IsOpenToReviews,
		AuthorID:                b.AuthorID,
		CoverImageURL:           b.CoverImageURL,
		PublishedDate:           b.PublishedDate,
	}
}

type PublishResult struct {
	Book    Book   `json:"data"`
	Message string `json:"message"`
}

type KPIs struct {
	BooksPublishRate  float64 `json:"booksPublishRate"`
	AverageReturnRate float64 `json:"averageReturnRate"`
}
