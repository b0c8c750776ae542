package handler

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/library-cms/library/internal/model"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	cover, err := h.bindWithImage(c, &req, "coverImage")
	if err != nil {
		return err
	}
	req.CoverImageURL = cover
	book, err := h.catalog.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	book, err := h.catalog.GetBook(c.Request().Context(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) EditBook(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	var patch model.BookPatch
	cover, err := h.bindWithImage(c, &patch, "coverImage")
	if err != nil {
		return err
	}
	if cover != "" {
		patch.CoverImageURL = model.Some(cover)
	}
	book, err := h.catalog.EditBook(c.Request().Context(), id, patch)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) TogglePublish(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	res, err := h.catalog.TogglePublish(c.Request().Context(), id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteBook(c.Request().Context(), id); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBooks(c echo.Context) error {
	p, err := pageRequest(c)
	if err != nil {
		return err
	}
	f := model.BookFilter{
		PageRequest: p,
		Title:       c.QueryParam("title"),
		ISBN:        c.QueryParam("isbn"),
		Genre:       c.QueryParam("genre"),
	}
	if publishedParam := c.QueryParam("published"); publishedParam != "" {
		published, err := strconv.ParseBool(publishedParam)
		if err != nil {
			return badRequest("published is invalid")
		}
		f.Published = &published
	}
	books, err := h.catalog.ListBooks(c.Request().Context(), f)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) ListPublishedBooks(c echo.Context) error {
	p, err := pageRequest(c)
	if err != nil {
		return err
	}
	f := model.PublishedBookFilter{PageRequest: p, Genre: c.QueryParam("genre")}
	books, err := h.catalog.ListPublishedBooks(c.Request().Context(), f, lang(c))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetPublishedBook(c echo.Context) error {
	id, err := pathID(c, "bookId")
	if err != nil {
		return err
	}
	book, err := h.catalog.GetPublishedBook(c.Request().Context(), id, lang(c))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) KPIs(c echo.Context) error {
	kpis, err := h.stats.KPIs(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, kpis)
}
