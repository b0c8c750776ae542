package service

import (
	"context"
	"strings"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"github.com/google/uuid"
)

func sanitizeAuthor(a *model.Author) {
	a.Name.En = validate.Sanitize(a.Name.En)
	a.Name.Ar = validate.Sanitize(a.Name.Ar)
	a.Biography.En = validate.Sanitize(a.Biography.En)
	a.Biography.Ar = validate.Sanitize(a.Biography.Ar)
	a.Email = strings.TrimSpace(a.Email)
}

func (c *Catalog) CreateAuthor(ctx context.Context, req model.CreateAuthorRequest) (model.Author, error) {
	if err := check(c.validator, req); err != nil {
		return model.Author{}, err
	}
	author := model.Author{
		ID:              uuid.New(),
		Name:            req.Name,
		Email:           req.Email,
		Biography:       req.Biography,
		ProfileImageURL: req.ProfileImageURL,
		BirthDate:       req.BirthDate.Time,
	}
	sanitizeAuthor(&author)
	if err := check(c.validator, author); err != nil {
		return model.Author{}, err
	}
	return c.repo.CreateAuthor(ctx, author)
}

func (c *Catalog) GetAuthor(ctx context.Context, id uuid.UUID) (model.Author, error) {
	return c.repo.GetAuthor(ctx, id)
}

func (c *Catalog) GetAuthorProfile(ctx context.Context, id uuid.UUID, lang model.Lang) (model.AuthorProfile, error) {
	author, err := c.repo.GetAuthor(ctx, id)
	if err != nil {
		return model.AuthorProfile{}, err
	}
	return author.Profile(lang), nil
}

func (c *Catalog) UpdateAuthor(ctx context.Context, id uuid.UUID, patch model.AuthorPatch) (model.Author, error) {
	author, err := c.repo.GetAuthor(ctx, id)
	if err != nil {
		return model.Author{}, err
	}
	patch.Name.ApplyTo(&author.Name)
	patch.Biography.ApplyTo(&author.Biography)
	patch.Email.ApplyTo(&author.Email)
	patch.ProfileImageURL.ApplyTo(&author.ProfileImageURL)
	if patch.BirthDate.Set {
		author.BirthDate = patch.BirthDate.Value.Time
	}
	sanitizeAuthor(&author)
	if err := check(c.validator, author); err != nil {
		return model.Author{}, err
	}
	return c.repo.UpdateAuthor(ctx, author)
}

func (c *Catalog) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return c.repo.DeleteAuthor(ctx, id)
}
