package handler

import (
	"net/http"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateAuthor(c echo.Context) error {
	var req model.CreateAuthorRequest
	image, err := h.bindWithImage(c, &req, "profileImage")
	if err != nil {
		return err
	}
	req.ProfileImageURL = image
	author, err := h.catalog.CreateAuthor(c.Request().Context(), req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, author)
}

func (h *Handler) GetAuthor(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	author, err := h.catalog.GetAuthor(c.Request().Context(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, author)
}

func (h *Handler) GetAuthorProfile(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	profile, err := h.catalog.GetAuthorProfile(c.Request().Context(), id, lang(c))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateAuthor(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	var patch model.AuthorPatch
	image, err := h.bindWithImage(c, &patch, "profileImage")
	if err != nil {
		return err
	}
	if image != "" {
		patch.ProfileImageURL = model.Some(image)
	}
	author, err := h.catalog.UpdateAuthor(c.Request().Context(), id, patch)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, author)
}

func (h *Handler) DeleteAuthor(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteAuthor(c.Request().Context(), id); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
