package service

import (
	"context"
	"strings"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Membership manages member profiles and subscriptions. The reliability
// score is only ever moved by Lending.
type Membership struct {
	repo      repository.Repository
	validator *validate.CustomValidator
	log       *zap.Logger
}

func NewMembership(repo repository.Repository, validator *validate.CustomValidator, log *zap.Logger) *Membership {
	return &Membership{
		repo:      repo,
		validator: validator,
		log:       log.Named("membership"),
	}
}

func sanitizeMember(m *model.Member) {
	m.Name = validate.Sanitize(m.Name)
	m.Username = strings.TrimSpace(m.Username)
	m.Email = strings.TrimSpace(m.Email)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// booksExist fails with a reference error unless every id resolves to a book.
func booksExist(ctx context.Context, repo repository.Repository, ids []uuid.UUID) error {
	n, err := repo.CountBooks(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return errs.Reference("one or more subscribed books do not exist")
	}
	return nil
}

func (m *Membership) Register(ctx context.Context, req model.RegisterMemberRequest) (model.Member, error) {
	if err := check(m.validator, req); err != nil {
		return model.Member{}, err
	}
	member := model.Member{
		ID:              uuid.New(),
		Name:            req.Name,
		Username:        req.Username,
		Email:           req.Email,
		BirthDate:       req.BirthDate.Time,
		SubscribedBooks: uniqueIDs(req.SubscribedBooks),
	}
	sanitizeMember(&member)
	if err := check(m.validator, member); err != nil {
		return model.Member{}, err
	}

	var out model.Member
	err := m.repo.InTx(ctx, func(repo repository.Repository) error {
		if err := booksExist(ctx, repo, member.SubscribedBooks); err != nil {
			return err
		}
		created, err := repo.CreateMember(ctx, member)
		if err != nil {
			return err
		}
		if err := repo.SetSubscriptions(ctx, created.ID, member.SubscribedBooks); err != nil {
			return err
		}
		created.SubscribedBooks = member.SubscribedBooks
		out = created
		return nil
	})
	if err != nil {
		return model.Member{}, err
	}
	return out, nil
}

func (m *Membership) GetProfile(ctx context.Context, id uuid.UUID) (model.Member, error) {
	return m.repo.GetMember(ctx, id)
}

func (m *Membership) Update(ctx context.Context, id uuid.UUID, patch model.MemberPatch) (model.Member, error) {
	var out model.Member
	err := m.repo.InTx(ctx, func(repo repository.Repository) error {
		member, err := repo.GetMember(ctx, id)
		if err != nil {
			return err
		}
		patch.ApplyTo(&member)
		sanitizeMember(&member)
		if err := check(m.validator, member); err != nil {
			return err
		}
		if patch.SubscribedBooks.Set {
			member.SubscribedBooks = uniqueIDs(member.SubscribedBooks)
			if err := booksExist(ctx, repo, member.SubscribedBooks); err != nil {
				return err
			}
			if err := repo.SetSubscriptions(ctx, id, member.SubscribedBooks); err != nil {
				return err
			}
		}
		out, err = repo.UpdateMember(ctx, member)
		return err
	})
	if err != nil {
		return model.Member{}, err
	}
	return out, nil
}

func (m *Membership) Delete(ctx context.Context, id uuid.UUID) error {
	return m.repo.DeleteMember(ctx, id)
}

// ToggleSubscription subscribes the member to the book or, if already
// subscribed, removes the subscription.
func (m *Membership) ToggleSubscription(ctx context.Context, memberID, bookID uuid.UUID) (model.SubscriptionResult, error) {
	var subscribed bool
	err := m.repo.InTx(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetMember(ctx, memberID); err != nil {
			return err
		}
		if _, err := repo.GetBook(ctx, bookID); err != nil {
			return err
		}
		var err error
		subscribed, err = repo.ToggleSubscription(ctx, memberID, bookID)
		return err
	})
	if err != nil {
		return model.SubscriptionResult{}, err
	}
	res := model.SubscriptionResult{BookID: bookID, Subscribed: subscribed, Message: "Unsubscription successful"}
	if subscribed {
		res.Message = "Subscription successful"
	}
	return res, nil
}

func (m *Membership) Search(ctx context.Context, f model.MemberFilter) (model.Paginated[model.MemberSummary], error) {
	return m.repo.SearchMembers(ctx, f)
}
