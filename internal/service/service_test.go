package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/internal/service"

	repo_mocks "github.com/AmmarMarediya/library-service/internal/repository/mocks"
)

const testAdmin = "ammar"

// fixedClock pins today() to 2026-09-01 UTC regardless of wall time.
func fixedClock() time.Time {
	return time.Date(2026, time.September, 1, 15, 4, 5, 0, time.UTC)
}

var fixedToday = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

func TestService_Lend(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *repo_mocks.MockRepository, req model.LendRequest)

	const memberUid = "7e8c5a52-03a5-4c1b-9f40-dd0b2b5c544f"
	req := model.LendRequest{
		MemberUid:     memberUid,
		BookUids:      []string{"f7cdc58f-2caf-4b15-9727-f89dcc629b27"},
		ReturnDate:    "2026-09-15",
		Fine:          10,
		PaymentMethod: "Cash",
	}
	params := model.LendParams{
		MemberUid:     req.MemberUid,
		BookUids:      req.BookUids,
		ReturnDate:    time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC),
		Fine:          req.Fine,
		PaymentMethod: req.PaymentMethod,
	}

	var tests = []struct {
		name         string
		req          model.LendRequest
		mockBehavior mockBehavior
		want         model.Transaction
		wantErr      error
	}{
		{
			name: "ok",
			req:  req,
			mockBehavior: func(r *repo_mocks.MockRepository, req model.LendRequest) {
				r.EXPECT().
					AmountDue(context.Background(), testAdmin, req.MemberUid).
					Return(100.0, nil)
				r.EXPECT().
					Lend(context.Background(), testAdmin, params).
					Return(model.Transaction{
						TransactionUid: "0cf8b5dc-0941-4bf7-bf69-cb616b77a8a3",
						MemberUid:      memberUid,
						Amount:         120,
						PaymentMethod:  "Cash",
					}, nil)
			},
			want: model.Transaction{
				TransactionUid: "0cf8b5dc-0941-4bf7-bf69-cb616b77a8a3",
				MemberUid:      memberUid,
				Amount:         120,
				PaymentMethod:  "Cash",
			},
		},
		{
			name: "ok. amount due exactly at the limit",
			req:  req,
			mockBehavior: func(r *repo_mocks.MockRepository, req model.LendRequest) {
				r.EXPECT().
					AmountDue(context.Background(), testAdmin, req.MemberUid).
					Return(500.0, nil)
				r.EXPECT().
					Lend(context.Background(), testAdmin, params).
					Return(model.Transaction{MemberUid: memberUid}, nil)
			},
			want: model.Transaction{MemberUid: memberUid},
		},
		{
			name: "err. limit exceeded, lending never reaches the ledger",
			req:  req,
			mockBehavior: func(r *repo_mocks.MockRepository, req model.LendRequest) {
				r.EXPECT().
					AmountDue(context.Background(), testAdmin, req.MemberUid).
					Return(500.01, nil)
			},
			wantErr: errs.ErrBorrowLimitExceeded,
		},
		{
			name: "err. member not found",
			req:  req,
			mockBehavior: func(r *repo_mocks.MockRepository, req model.LendRequest) {
				r.EXPECT().
					AmountDue(context.Background(), testAdmin, req.MemberUid).
					Return(0.0, errs.ErrNotFound)
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "err. ledger rejects unavailable book",
			req:  req,
			mockBehavior: func(r *repo_mocks.MockRepository, req model.LendRequest) {
				r.EXPECT().
					AmountDue(context.Background(), testAdmin, req.MemberUid).
					Return(0.0, nil)
				r.EXPECT().
					Lend(context.Background(), testAdmin, params).
					Return(model.Transaction{}, errs.ErrBookUnavailable)
			},
			wantErr: errs.ErrBookUnavailable,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			repo := repo_mocks.NewMockRepository(c)
			tt.mockBehavior(repo, tt.req)

			svc := service.NewService(repo, nil, zap.NewExample().Named("test"))

			got, err := svc.Lend(context.Background(), testAdmin, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestService_ReturnBook(t *testing.T) {
	t.Parallel()
	const borrowUid = "1b6f0c2e-0d52-4cf5-8870-29c6c7a3f61d"

	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockRepository(c)
	repo.EXPECT().
		ReturnBook(context.Background(), testAdmin, borrowUid, fixedToday).
		Return(nil)

	svc := service.NewService(repo, nil, zap.NewExample().Named("test"), service.WithClock(fixedClock))
	require.NoError(t, svc.ReturnBook(context.Background(), testAdmin, borrowUid))
}

func TestService_SettleFine(t *testing.T) {
	t.Parallel()
	const borrowUid = "1b6f0c2e-0d52-4cf5-8870-29c6c7a3f61d"
	req := model.SettleFineRequest{PaymentMethod: "Gpay"}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().
			SettleFine(context.Background(), testAdmin, borrowUid, "Gpay").
			Return(model.Transaction{Amount: 50, PaymentMethod: "Gpay"}, nil)

		svc := service.NewService(repo, nil, zap.NewExample().Named("test"))
		got, err := svc.SettleFine(context.Background(), testAdmin, borrowUid, req)
		require.NoError(t, err)
		require.Equal(t, 50.0, got.Amount)
	})

	t.Run("err. already settled", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().
			SettleFine(context.Background(), testAdmin, borrowUid, "Gpay").
			Return(model.Transaction{}, errs.ErrInvalidState)

		svc := service.NewService(repo, nil, zap.NewExample().Named("test"))
		_, err := svc.SettleFine(context.Background(), testAdmin, borrowUid, req)
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})
}

func TestService_ListOverdue(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockRepository(c)
	repo.EXPECT().
		ListBorrowedBooks(context.Background(), testAdmin, "", true, fixedToday).
		Return([]model.BorrowedBook{{BorrowUid: "1b6f0c2e-0d52-4cf5-8870-29c6c7a3f61d"}}, nil)

	svc := service.NewService(repo, nil, zap.NewExample().Named("test"), service.WithClock(fixedClock))
	got, err := svc.ListOverdue(context.Background(), testAdmin, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestService_Dashboard(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().
			Dashboard(context.Background(), testAdmin, fixedToday).
			Return(model.Dashboard{TotalMembers: 12, TotalBooks: 40, TotalBorrowed: 7, TotalOverdue: 2}, nil)
		repo.EXPECT().
			TotalForAdmin(context.Background(), testAdmin).
			Return(1350.0, nil)
		repo.EXPECT().
			OverdueExposure(context.Background(), testAdmin, fixedToday).
			Return(90.0, nil)

		svc := service.NewService(repo, nil, zap.NewExample().Named("test"), service.WithClock(fixedClock))
		got, err := svc.Dashboard(context.Background(), testAdmin)
		require.NoError(t, err)
		require.Equal(t, model.Dashboard{
			TotalMembers:    12,
			TotalBooks:      40,
			TotalBorrowed:   7,
			TotalOverdue:    2,
			TotalCollected:  1350,
			OverdueExposure: 90,
		}, got)
	})

	t.Run("err. counts query fails", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().
			Dashboard(context.Background(), testAdmin, fixedToday).
			Return(model.Dashboard{}, errors.New("db internal"))

		svc := service.NewService(repo, nil, zap.NewExample().Named("test"), service.WithClock(fixedClock))
		_, err := svc.Dashboard(context.Background(), testAdmin)
		require.Error(t, err)
	})
}
