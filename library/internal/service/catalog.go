package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/Astemirdum/library-cms/pkg/notify"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Catalog owns books and authors, including the publish gate.
type Catalog struct {
	repo      repository.Repository
	notifier  notify.Notifier
	validator *validate.CustomValidator
	// public book views by id, dropped on every write to the book
	cache *cache.Cache
	// epoch counts invalidations; a view read before a bump is not cached
	epoch atomic.Uint64
	log   *zap.Logger
}

func NewCatalog(
	repo repository.Repository,
	notifier notify.Notifier,
	validator *validate.CustomValidator,
	cacheTTL time.Duration,
	log *zap.Logger,
) *Catalog {
	return &Catalog{
		repo:      repo,
		notifier:  notifier,
		validator: validator,
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		log:       log.Named("catalog"),
	}
}

func sanitizeBook(b *model.Book) {
	b.Title.En = validate.Sanitize(b.Title.En)
	b.Title.Ar = validate.Sanitize(b.Title.Ar)
	b.Description.En = validate.Sanitize(b.Description.En)
	b.Description.Ar = validate.Sanitize(b.Description.Ar)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Genre = validate.Sanitize(b.Genre)
}

func (c *Catalog) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	book := model.Book{
		ID:                      uuid.New(),
		Title:                   req.Title,
		Description:             req.Description,
		ISBN:                    req.ISBN,
		Genre:                   req.Genre,
		NumberOfAvailableCopies: req.NumberOfAvailableCopies,
		IsBorrowable:            req.IsBorrowable,
		NumberOfBorrowableDays:  req.NumberOfBorrowableDays,
		IsOpenToReviews:         req.IsOpenToReviews,
		MinAge:                  req.MinAge,
		AuthorID:                req.AuthorID,
		CoverImageURL:           req.CoverImageURL,
	}
	if req.PublishedDate != nil && !req.PublishedDate.IsZero() {
		t := req.PublishedDate.Time
		book.PublishedDate = &t
	}
	sanitizeBook(&book)
	if err := check(c.validator, book); err != nil {
		return model.Book{}, err
	}
	if err := c.authorExists(ctx, book.AuthorID); err != nil {
		return model.Book{}, err
	}
	return c.repo.CreateBook(ctx, book)
}

func (c *Catalog) authorExists(ctx context.Context, id uuid.UUID) error {
	if _, err := c.repo.GetAuthor(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Reference("invalid authorId: author does not exist")
		}
		return err
	}
	return nil
}

func (c *Catalog) GetBook(ctx context.Context, id uuid.UUID) (model.Book, error) {
	return c.repo.GetBook(ctx, id)
}

// Invalidate drops the cached public view of a book. Lending calls it after
// every committed stock change.
func (c *Catalog) Invalidate(id uuid.UUID) {
	c.epoch.Add(1)
	c.cache.Delete(id.String())
}

// GetPublishedBook is the public detail view; drafts are reported as missing.
func (c *Catalog) GetPublishedBook(ctx context.Context, id uuid.UUID, lang model.Lang) (model.PublicBook, error) {
	key := id.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(model.Book).Public(lang), nil
	}

	epoch := c.epoch.Load()
	book, err := c.repo.GetBook(ctx, id)
	if err != nil {
		return model.PublicBook{}, err
	}
	if !book.IsPublished {
		return model.PublicBook{}, errs.NotFound("book")
	}
	c.cache.SetDefault(key, book)
	if c.epoch.Load() != epoch {
		// a write landed between the read and the set
		c.cache.Delete(key)
	}
	return book.Public(lang), nil
}

// EditBook applies the fields present in patch to an unpublished book.
func (c *Catalog) EditBook(ctx context.Context, id uuid.UUID, patch model.BookPatch) (model.Book, error) {
	if patch.IsPublished.Set {
		return model.Book{}, errs.Validation("isPublished cannot be changed by an edit, use the publish action")
	}
	book, err := c.repo.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	if book.IsPublished {
		return model.Book{}, errs.StateConflict("published book cannot be edited")
	}
	authorID := book.AuthorID
	patch.ApplyTo(&book)
	sanitizeBook(&book)
	if err := check(c.validator, book); err != nil {
		return model.Book{}, err
	}
	if book.AuthorID != authorID {
		if err := c.authorExists(ctx, book.AuthorID); err != nil {
			return model.Book{}, err
		}
	}
	updated, err := c.repo.UpdateBook(ctx, book)
	if err != nil {
		return model.Book{}, err
	}
	c.Invalidate(id)
	return updated, nil
}

// TogglePublish flips the publish flag. Subscribers hear about the book
// once the flag is committed as published.
func (c *Catalog) TogglePublish(ctx context.Context, id uuid.UUID) (model.PublishResult, error) {
	book, err := c.repo.TogglePublished(ctx, id)
	if err != nil {
		return model.PublishResult{}, err
	}
	c.Invalidate(id)

	if !book.IsPublished {
		return model.PublishResult{Book: book, Message: "Book unpublished successfully"}, nil
	}
	emails, err := c.repo.SubscriberEmails(ctx, id)
	if err != nil {
		c.log.Error("SubscriberEmails", zap.Stringer("book", id), zap.Error(err))
		emails = nil
	}
	for _, to := range emails {
		c.notifier.Notify(ctx, mailer.Message{
			To:      to,
			Subject: fmt.Sprintf("Book Published: %s", book.Title.En),
			Text:    fmt.Sprintf("The book %q has been published.", book.Title.En),
		})
	}
	c.log.Debug("book published", zap.Stringer("book", id), zap.Int("subscribers", len(emails)))
	return model.PublishResult{Book: book, Message: "Book published successfully"}, nil
}

func (c *Catalog) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if err := c.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	c.Invalidate(id)
	return nil
}

func (c *Catalog) ListBooks(ctx context.Context, f model.BookFilter) (model.Paginated[model.Book], error) {
	return c.repo.ListBooks(ctx, f)
}

func (c *Catalog) ListPublishedBooks(ctx context.Context, f model.PublishedBookFilter, lang model.Lang) (model.Paginated[model.BookCard], error) {
	return c.repo.ListPublishedBooks(ctx, f, lang)
}
