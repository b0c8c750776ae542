package handler

import (
	"net/http"

	"github.com/Astemirdum/library-cms/library/internal/model"
	md "github.com/Astemirdum/library-cms/pkg/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// bookRequest binds the {"bookId": ...} body shared by the member actions.
func bookRequest(c echo.Context) (memberID, bookID uuid.UUID, err error) {
	memberID, ok := md.MemberID(c.Request().Context())
	if !ok {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, message{Message: "member is not identified"})
	}
	var req model.BorrowRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, uuid.Nil, badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return uuid.Nil, uuid.Nil, badRequest(err.Error())
	}
	return memberID, req.BookID, nil
}

func (h *Handler) Borrow(c echo.Context) error {
	memberID, bookID, err := bookRequest(c)
	if err != nil {
		return err
	}
	res, err := h.lending.Borrow(c.Request().Context(), memberID, bookID)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Return(c echo.Context) error {
	memberID, bookID, err := bookRequest(c)
	if err != nil {
		return err
	}
	res, err := h.lending.Return(c.Request().Context(), memberID, bookID)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ToggleSubscription(c echo.Context) error {
	memberID, bookID, err := bookRequest(c)
	if err != nil {
		return err
	}
	res, err := h.membership.ToggleSubscription(c.Request().Context(), memberID, bookID)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListLoans(c echo.Context) error {
	id, err := pathID(c, "memberId")
	if err != nil {
		return err
	}
	loans, err := h.lending.Loans(c.Request().Context(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, loans)
}
