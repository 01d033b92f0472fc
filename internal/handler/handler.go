package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/pkg/auth"
	md "github.com/AmmarMarediya/library-service/pkg/middleware"
	"github.com/AmmarMarediya/library-service/pkg/validate"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySvc LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySvc,
		log:        log,
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

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
		md.JwtAuthentication,
	)

	api.GET("/dashboard", h.Dashboard)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.PATCH("/books/:bookUid", h.UpdateBook)
	api.DELETE("/books/:bookUid", h.DeleteBook)

	api.POST("/members", h.CreateMember)
	api.GET("/members", h.ListMembers)
	api.PATCH("/members/:memberUid", h.UpdateMember)
	api.DELETE("/members/:memberUid", h.DeleteMember)

	api.POST("/lendings", h.Lend)
	api.GET("/lendings", h.ListBorrowed)
	api.GET("/lendings/overdue", h.ListOverdue)
	api.PATCH("/lendings/:borrowUid", h.UpdateBorrowed)
	api.DELETE("/lendings/:borrowUid", h.DeleteBorrowed)
	api.POST("/lendings/:borrowUid/return", h.ReturnBook)
	api.POST("/lendings/:borrowUid/fine", h.SettleFine)

	api.GET("/payments", h.ListPayments)
	api.DELETE("/payments/:transactionUid", h.DeletePayment)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// adminFrom reads the authenticated librarian identity. Every tenant-scoped
// handler fails closed without it.
func adminFrom(c echo.Context) (string, error) {
	admin, err := auth.UserName(c.Request().Context())
	if err != nil {
		return "", errs.ErrNotAuthenticated
	}
	return admin, nil
}

func (h *Handler) Dashboard(c echo.Context) error {
	admin, err := adminFrom(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	d, err := h.librarySvc.Dashboard(c.Request().Context(), admin)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}
