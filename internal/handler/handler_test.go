package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/handler"
	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/pkg/auth"
	"github.com/AmmarMarediya/library-service/pkg/validate"

	service_mocks "github.com/AmmarMarediya/library-service/internal/handler/mocks"
)

const testAdmin = "ammar"

// asAdmin injects the authenticated librarian the same way the jwt
// middleware does in production.
func asAdmin(admin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.SetAuthContext(c.Request().Context(), admin, "admin")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func TestHandler_Lend(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService)

	const (
		memberUid = "7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f"
		bookUid   = "f7cdc58f-2caf-4b15-9727-f89dcc629b27"
	)
	body := fmt.Sprintf(`{"memberUid":%q,"bookUids":[%q],"returnDate":"2026-09-15","fine":10,"paymentMethod":"Cash"}`, memberUid, bookUid)
	lendReq := model.LendRequest{
		MemberUid:     memberUid,
		BookUids:      []string{bookUid},
		ReturnDate:    "2026-09-15",
		Fine:          10,
		PaymentMethod: "Cash",
	}

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Lend(gomock.Any(), testAdmin, lendReq).
					Return(model.Transaction{
						TransactionUid: "0cf8b5dc-0941-4bf7-bf69-cb616b77a8a3",
						MemberUid:      memberUid,
						MemberName:     "Chris Martin",
						Amount:         120,
						PaymentMethod:  "Cash",
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: fmt.Sprintf(`{"transactionUid":"0cf8b5dc-0941-4bf7-bf69-cb616b77a8a3","memberUid":%q,"memberName":"Chris Martin","amount":120,"paymentMethod":"Cash","createdAt":"0001-01-01T00:00:00Z"}`, memberUid),
			},
			wantErr: false,
		},
		{
			name: "err. member not found",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Lend(gomock.Any(), testAdmin, lendReq).
					Return(model.Transaction{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
		{
			name: "err. borrow limit exceeded",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Lend(gomock.Any(), testAdmin, lendReq).
					Return(model.Transaction{}, errors.Wrapf(errs.ErrBorrowLimitExceeded, "member %s", memberUid))
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: fmt.Sprintf(`{"message":"member %s: member has exceeded the borrowing limit"}`, memberUid),
			},
			wantErr: true,
		},
		{
			name: "err. book not available",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Lend(gomock.Any(), testAdmin, lendReq).
					Return(model.Transaction{}, errs.ErrBookUnavailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"book is not available"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. payment method required",
			body:         fmt.Sprintf(`{"memberUid":%q,"bookUids":[%q],"returnDate":"2026-09-15"}`, memberUid, bookUid),
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'LendRequest.PaymentMethod' Error:Field validation for 'PaymentMethod' failed on the 'required' tag"}`,
			},
			wantErr: true,
		},
		{
			name: "err. internal",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Lend(gomock.Any(), testAdmin, lendReq).
					Return(model.Transaction{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/api/v1/lendings", h.Lend, asAdmin(testAdmin))

			r := httptest.NewRequest(http.MethodPost, "/api/v1/lendings", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ReturnBook(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, borrowUid string)

	const borrowUid = "1b6f0c2e-0d52-4cf5-8870-29c6c7a3f61d"

	var tests = []struct {
		name         string
		borrowUid    string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:      "ok",
			borrowUid: borrowUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					ReturnBook(gomock.Any(), testAdmin, borrowUid).
					Return(nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: ``,
			},
			wantErr: false,
		},
		{
			name:      "err. not found",
			borrowUid: borrowUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					ReturnBook(gomock.Any(), testAdmin, borrowUid).
					Return(errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
		{
			name:      "err. already returned",
			borrowUid: borrowUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					ReturnBook(gomock.Any(), testAdmin, borrowUid).
					Return(errs.ErrInvalidState)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"borrowed book is already returned"}`,
			},
			wantErr: true,
		},
		{
			name:      "err. overdue routes to fine",
			borrowUid: borrowUid,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					ReturnBook(gomock.Any(), testAdmin, borrowUid).
					Return(errs.ErrFineDue)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"borrowed book is overdue, settle the fine instead"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/api/v1/lendings/:borrowUid/return", h.ReturnBook, asAdmin(testAdmin))

			r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/lendings/%s/return", tt.borrowUid), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.borrowUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_SettleFine(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, borrowUid string)

	const borrowUid = "1b6f0c2e-0d52-4cf5-8870-29c6c7a3f61d"
	body := `{"paymentMethod":"Gpay"}`
	settleReq := model.SettleFineRequest{PaymentMethod: "Gpay"}

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					SettleFine(gomock.Any(), testAdmin, borrowUid, settleReq).
					Return(model.Transaction{
						TransactionUid: "5a0c8f5e-9d9c-45ad-b69e-2a6e39a1f90f",
						MemberUid:      "7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f",
						MemberName:     "Chris Martin",
						Amount:         50,
						PaymentMethod:  "Gpay",
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"transactionUid":"5a0c8f5e-9d9c-45ad-b69e-2a6e39a1f90f","memberUid":"7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f","memberName":"Chris Martin","amount":50,"paymentMethod":"Gpay","createdAt":"0001-01-01T00:00:00Z"}`,
			},
			wantErr: false,
		},
		{
			name: "err. second settle is rejected",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					SettleFine(gomock.Any(), testAdmin, borrowUid, settleReq).
					Return(model.Transaction{}, errs.ErrInvalidState)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"borrowed book is already returned"}`,
			},
			wantErr: true,
		},
		{
			name: "err. not found",
			body: body,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {
				r.EXPECT().
					SettleFine(gomock.Any(), testAdmin, borrowUid, settleReq).
					Return(model.Transaction{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. unknown payment method",
			body:         `{"paymentMethod":"Barter"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService, borrowUid string) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'SettleFineRequest.PaymentMethod' Error:Field validation for 'PaymentMethod' failed on the 'oneof' tag"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/api/v1/lendings/:borrowUid/fine", h.SettleFine, asAdmin(testAdmin))

			r := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/lendings/%s/fine", borrowUid), strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, borrowUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_CreateMember(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService)

	body := `{"name":"Chris Martin","email":"chris@example.com"}`
	createReq := model.CreateMemberRequest{Name: "Chris Martin", Email: "chris@example.com"}

	var tests = []struct {
		name         string
		body         string
		authed       bool
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:   "ok",
			body:   body,
			authed: true,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateMember(gomock.Any(), testAdmin, createReq).
					Return(model.Member{
						MemberUid: "7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f",
						Name:      "Chris Martin",
						Email:     "chris@example.com",
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"memberUid":"7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f","name":"Chris Martin","email":"chris@example.com","amountDue":0,"createdAt":"0001-01-01T00:00:00Z"}`,
			},
			wantErr: false,
		},
		{
			name:   "err. duplicate email",
			body:   body,
			authed: true,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateMember(gomock.Any(), testAdmin, createReq).
					Return(model.Member{}, errs.ErrDuplicateEmail)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"email is already registered"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. invalid email",
			body:         `{"name":"Chris Martin","email":"not-an-email"}`,
			authed:       true,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'CreateMemberRequest.Email' Error:Field validation for 'Email' failed on the 'email' tag"}`,
			},
			wantErr: true,
		},
		{
			name:         "err. no auth",
			body:         body,
			authed:       false,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"not authenticated"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			if tt.authed {
				e.POST("/api/v1/members", h.CreateMember, asAdmin(testAdmin))
			} else {
				e.POST("/api/v1/members", h.CreateMember)
			}

			r := httptest.NewRequest(http.MethodPost, "/api/v1/members", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, query string)

	var tests = []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name:  "ok",
			query: "clean",
			mockBehavior: func(r *service_mocks.MockLibraryService, query string) {
				r.EXPECT().
					ListBooks(gomock.Any(), testAdmin, query).
					Return([]model.Book{
						{
							BookUid:      "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
							Title:        "Clean Architecture",
							Author:       "Robert Martin",
							Category:     "Programming",
							Quantity:     3,
							BorrowingFee: 40,
							Status:       model.StatusAvailable,
						},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"bookUid":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","title":"Clean Architecture","author":"Robert Martin","category":"Programming","quantity":3,"borrowingFee":40,"status":"available","createdAt":"0001-01-01T00:00:00Z"}]`,
			},
			wantErr: false,
		},
		{
			name:  "ok. empty",
			query: "",
			mockBehavior: func(r *service_mocks.MockLibraryService, query string) {
				r.EXPECT().
					ListBooks(gomock.Any(), testAdmin, query).
					Return([]model.Book{}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[]`,
			},
			wantErr: false,
		},
		{
			name:  "err. internal",
			query: "",
			mockBehavior: func(r *service_mocks.MockLibraryService, query string) {
				r.EXPECT().
					ListBooks(gomock.Any(), testAdmin, query).
					Return(nil, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/api/v1/books", h.ListBooks, asAdmin(testAdmin))

			r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/books?query=%s", tt.query), http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.query)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteMember(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, memberUid string)

	const memberUid = "7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f"

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService, memberUid string) {
				r.EXPECT().
					DeleteMember(gomock.Any(), testAdmin, memberUid).
					Return(nil)
			},
			response: response{
				expectedCode: http.StatusNoContent,
				expectedBody: ``,
			},
			wantErr: false,
		},
		{
			name: "err. outstanding loans",
			mockBehavior: func(r *service_mocks.MockLibraryService, memberUid string) {
				r.EXPECT().
					DeleteMember(gomock.Any(), testAdmin, memberUid).
					Return(errs.ErrOutstandingLoans)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"record has unreturned borrowed books"}`,
			},
			wantErr: true,
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService, memberUid string) {
				r.EXPECT().
					DeleteMember(gomock.Any(), testAdmin, memberUid).
					Return(errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.DELETE("/api/v1/members/:memberUid", h.DeleteMember, asAdmin(testAdmin))

			r := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/members/%s", memberUid), http.NoBody)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, memberUid)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Dashboard(t *testing.T) {
	t.Parallel()

	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	log := zap.NewExample().Named("test")
	h := handler.New(svc, log)

	svc.EXPECT().
		Dashboard(gomock.Any(), testAdmin).
		Return(model.Dashboard{
			TotalMembers:    12,
			TotalBooks:      40,
			TotalBorrowed:   7,
			TotalOverdue:    2,
			TotalCollected:  1350,
			OverdueExposure: 90,
			RecentBooks:     []model.Book{},
		}, nil)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.GET("/api/v1/dashboard", h.Dashboard, asAdmin(testAdmin))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"totalMembers":12,"totalBooks":40,"totalBorrowed":7,"totalOverdue":2,"totalCollected":1350,"overdueExposure":90,"recentBooks":[]}`,
		strings.Trim(w.Body.String(), "\n"))
}
