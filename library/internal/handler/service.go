package handler

import (
	"context"
	"mime/multipart"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/service"
	"github.com/Astemirdum/library-cms/pkg/storage"
	"github.com/google/uuid"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ CatalogService    = (*service.Catalog)(nil)
	_ MembershipService = (*service.Membership)(nil)
	_ LendingService    = (*service.Lending)(nil)
	_ StatsService      = (*service.Stats)(nil)
	_ AssetStore        = (*storage.Disk)(nil)
)

type CatalogService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (model.Book, error)
	GetPublishedBook(ctx context.Context, id uuid.UUID, lang model.Lang) (model.PublicBook, error)
	EditBook(ctx context.Context, id uuid.UUID, patch model.BookPatch) (model.Book, error)
	TogglePublish(ctx context.Context, id uuid.UUID) (model.PublishResult, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, f model.BookFilter) (model.Paginated[model.Book], error)
	ListPublishedBooks(ctx context.Context, f model.PublishedBookFilter, lang model.Lang) (model.Paginated[model.BookCard], error)

	CreateAuthor(ctx context.Context, req model.CreateAuthorRequest) (model.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (model.Author, error)
	GetAuthorProfile(ctx context.Context, id uuid.UUID, lang model.Lang) (model.AuthorProfile, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, patch model.AuthorPatch) (model.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
}

type MembershipService interface {
	Register(ctx context.Context, req model.RegisterMemberRequest) (model.Member, error)
	GetProfile(ctx context.Context, id uuid.UUID) (model.Member, error)
	Update(ctx context.Context, id uuid.UUID, patch model.MemberPatch) (model.Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleSubscription(ctx context.Context, memberID, bookID uuid.UUID) (model.SubscriptionResult, error)
	Search(ctx context.Context, f model.MemberFilter) (model.Paginated[model.MemberSummary], error)
}

type LendingService interface {
	Borrow(ctx context.Context, memberID, bookID uuid.UUID) (model.BorrowResult, error)
	Return(ctx context.Context, memberID, bookID uuid.UUID) (model.ReturnResult, error)
	Loans(ctx context.Context, memberID uuid.UUID) ([]model.LoanView, error)
}

type StatsService interface {
	KPIs(ctx context.Context) (model.KPIs, error)
}

type AssetStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
}
