package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Astemirdum/library-cms/library/internal/errs"
	"github.com/Astemirdum/library-cms/library/internal/model"
	md "github.com/Astemirdum/library-cms/pkg/middleware"
	"github.com/Astemirdum/library-cms/pkg/storage"
	"github.com/Astemirdum/library-cms/pkg/validate"
	_ "github.com/Astemirdum/library-cms/swagger"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	catalog    CatalogService
	membership MembershipService
	lending    LendingService
	stats      StatsService
	assets     AssetStore
	log        *zap.Logger
}

func New(
	catalog CatalogService,
	membership MembershipService,
	lending LendingService,
	stats StatsService,
	assets AssetStore,
	log *zap.Logger,
) *Handler {
	return &Handler{
		catalog:    catalog,
		membership: membership,
		lending:    lending,
		stats:      stats,
		assets:     assets,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/authors", h.CreateAuthor)
	api.GET("/authors/:authorId", h.GetAuthor)
	api.PATCH("/authors/:authorId", h.UpdateAuthor)
	api.DELETE("/authors/:authorId", h.DeleteAuthor)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/kpis", h.KPIs)
	api.GET("/books/:bookId", h.GetBook)
	api.PATCH("/books/:bookId", h.EditBook)
	api.DELETE("/books/:bookId", h.DeleteBook)
	api.POST("/books/:bookId/publish", h.TogglePublish)

	api.POST("/members", h.RegisterMember)
	api.GET("/members", h.SearchMembers)
	api.PATCH("/members/:memberId", h.UpdateMember)
	api.DELETE("/members/:memberId", h.DeleteMember)

	web := api.Group("/web")
	web.GET("/authors/:authorId", h.GetAuthorProfile)
	web.GET("/books", h.ListPublishedBooks)
	web.GET("/books/:bookId", h.GetPublishedBook)
	web.GET("/members/:memberId", h.GetMemberProfile)
	web.GET("/members/:memberId/loans", h.ListLoans)

	member := web.Group("", md.MemberContext)
	member.POST("/loans/borrow", h.Borrow)
	member.POST("/loans/return", h.Return)
	member.POST("/subscriptions", h.ToggleSubscription)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func statusOf(k errs.Kind) int {
	switch k {
	case errs.KindValidation, errs.KindReference:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict, errs.KindStateConflict:
		return http.StatusConflict
	case errs.KindNotBorrowable, errs.KindOutOfStock, errs.KindLowStanding, errs.KindAgeRestricted,
		errs.KindAlreadyBorrowed, errs.KindNotBorrowed, errs.KindAlreadyReturned:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail renders a service error as an HTTP error.
func (h *Handler) fail(err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return echo.NewHTTPError(statusOf(e.Kind), errs.ErrorResponse{Message: e.Message, Details: e.Details})
	}
	h.log.Error("internal", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, errs.ErrorResponse{Message: http.StatusText(http.StatusInternalServerError)})
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errs.ErrorResponse{Message: msg})
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest(name + " is invalid")
	}
	return id, nil
}

func pageRequest(c echo.Context) (model.PageRequest, error) {
	var (
		p   model.PageRequest
		err error
	)
	if pageParam := c.QueryParam("page"); pageParam != "" {
		if p.Page, err = strconv.Atoi(pageParam); err != nil {
			return p, badRequest("page is invalid")
		}
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if p.Limit, err = strconv.Atoi(limitParam); err != nil {
			return p, badRequest("limit is invalid")
		}
	}
	return p.Normalize(), nil
}

func lang(c echo.Context) model.Lang {
	return model.ParseLang(c.Request().Header.Get("Accept-Language"))
}

// bindWithImage decodes the payload either from a JSON body or, for
// multipart requests, from the "data" form field. An image under field is
// stored and its name returned.
func (h *Handler) bindWithImage(c echo.Context, dst interface{}, field string) (string, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if err := c.Bind(dst); err != nil {
			return "", badRequest("invalid request body")
		}
		return "", nil
	}

	if data := c.FormValue("data"); data != "" {
		if err := json.UnmarshalFromString(data, dst); err != nil {
			return "", badRequest("invalid data field")
		}
	}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", badRequest(field + " is invalid")
	}
	name, err := h.assets.Save(c.Request().Context(), fh)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFileType) || errors.Is(err, storage.ErrFileTooLarge) {
			return "", badRequest(err.Error())
		}
		return "", h.fail(err)
	}
	return name, nil
}

type message struct {
	Message string `json:"message"`
}
