package handler

import (
	"net/http"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) RegisterMember(c echo.Context) error {
	var req model.RegisterMemberRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	member, err := h.membership.Register(c.Request().Context(), req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *Handler) GetMemberProfile(c echo.Context) error {
	id, err := pathID(c, "memberId")
	if err != nil {
		return err
	}
	member, err := h.membership.GetProfile(c.Request().Context(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) UpdateMember(c echo.Context) error {
	id, err := pathID(c, "memberId")
	if err != nil {
		return err
	}
	var patch model.MemberPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest("invalid request body")
	}
	member, err := h.membership.Update(c.Request().Context(), id, patch)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) DeleteMember(c echo.Context) error {
	id, err := pathID(c, "memberId")
	if err != nil {
		return err
	}
	if err := h.membership.Delete(c.Request().Context(), id); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchMembers(c echo.Context) error {
	p, err := pageRequest(c)
	if err != nil {
		return err
	}
	members, err := h.membership.Search(c.Request().Context(), model.MemberFilter{
		PageRequest: p,
		Name:        c.QueryParam("name"),
		Username:    c.QueryParam("username"),
		Email:       c.QueryParam("email"),
	})
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, members)
}
