package model

import (
	"time"

	"github.com/google/uuid"
)

type Author struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            Bilingual `json:"name" db:"name"`
	Email           string    `json:"email" db:"email" validate:"required,email"`
	Biography       Bilingual `json:"biography" db:"biography"`
	ProfileImageURL string    `json:"profileImageUrl" db:"profile_image_url" validate:"omitempty,image"`
	BirthDate       time.Time `json:"birthDate" db:"birth_date"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateAuthorRequest struct {
	Name            Bilingual `json:"name"`
	Email           string    `json:"email" validate:"required,email"`
	Biography       Bilingual `json:"biography"`
	BirthDate       *Date     `json:"birthDate" validate:"required"`
	ProfileImageURL string    `json:"-"`
}

type AuthorPatch struct {
	Name            BilingualPatch   `json:"name"`
	Email           Optional[string] `json:"email"`
	Biography       BilingualPatch   `json:"biography"`
	BirthDate       Optional[Date]   `json:"birthDate"`
	ProfileImageURL Optional[string] `json:"-"`
}

// AuthorProfile is the localized public view of an author.
type AuthorProfile struct {
	Name            string    `json:"name"`
	Biography       string    `json:"biography"`
	ProfileImageURL string    `json:"profileImageUrl"`
	BirthDate       time.Time `json:"birthDate"`
}

func (a Author) Profile(lang Lang) AuthorProfile {
	return AuthorProfile{
		Name:            a.Name.In(lang),
		Biography:       a.Biography.In(lang),
		ProfileImageURL: a.ProfileImageURL,
		BirthDate:       a.BirthDate,
	}
}
