package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize falls back to the defaults for non-positive values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Paging struct {
	TotalItems  int `json:"totalItems"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	PageSize    int `json:"pageSize"`
}

type Paginated[T any] struct {
	Paging
	Data []T `json:"data"`
}

func NewPaging(total int, p PageRequest) Paging {
	return Paging{
		TotalItems:  total,
		CurrentPage: p.Page,
		TotalPages:  (total + p.Limit - 1) / p.Limit,
		PageSize:    p.Limit,
	}
}

type Lang string

const (
	LangEn Lang = "en"
	LangAr Lang = "ar"
)

// ParseLang reads an Accept-Language value, defaulting to english.
func ParseLang(header string) Lang {
	tag := strings.ToLower(strings.TrimSpace(header))
	if i := strings.IndexAny(tag, ",;-_"); i >= 0 {
		tag = tag[:i]
	}
	if Lang(tag) == LangAr {
		return LangAr
	}
	return LangEn
}

// Bilingual holds a text in english and arabic.
type Bilingual struct {
	En string `json:"en" db:"en" validate:"required,english"`
	Ar string `json:"ar" db:"ar" validate:"required,arabic"`
}

func (b Bilingual) In(lang Lang) string {
	if lang == LangAr {
		return b.Ar
	}
	return b.En
}

type Description struct {
	En string `json:"en" db:"en" validate:"required"`
	Ar string `json:"ar" db:"ar" validate:"required,arabic"`
}

func (d Description) In(lang Lang) string {
	if lang == LangAr {
		return d.Ar
	}
	return d.En
}

type BilingualPatch struct {
	En Optional[string] `json:"en"`
	Ar Optional[string] `json:"ar"`
}

func (p BilingualPatch) ApplyTo(b *Bilingual) {
	p.En.ApplyTo(&b.En)
	p.Ar.ApplyTo(&b.Ar)
}

func (p BilingualPatch) ApplyToDescription(d *Description) {
	p.En.ApplyTo(&d.En)
	p.Ar.ApplyTo(&d.Ar)
}

// Optional tells an absent field apart from one explicitly set to its zero value.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o Optional[T]) ApplyTo(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}

// Date accepts both 2006-01-02 and RFC3339 on input.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: t}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	d.Time = t.UTC()
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}
