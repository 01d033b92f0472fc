package handler

import (
	"context"

	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	Dashboard(ctx context.Context, admin string) (model.Dashboard, error)

	CreateBook(ctx context.Context, admin string, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, admin, bookUid string, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, admin, bookUid string) error
	ListBooks(ctx context.Context, admin, query string) ([]model.Book, error)

	CreateMember(ctx context.Context, admin string, req model.CreateMemberRequest) (model.Member, error)
	UpdateMember(ctx context.Context, admin, memberUid string, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, admin, memberUid string) error
	ListMembers(ctx context.Context, admin, query string) ([]model.Member, error)

	Lend(ctx context.Context, admin string, req model.LendRequest) (model.Transaction, error)
	ReturnBook(ctx context.Context, admin, borrowUid string) error
	SettleFine(ctx context.Context, admin, borrowUid string, req model.SettleFineRequest) (model.Transaction, error)
	UpdateBorrowed(ctx context.Context, admin, borrowUid string, req model.UpdateBorrowedBookRequest) (model.BorrowedBook, error)
	DeleteBorrowed(ctx context.Context, admin, borrowUid string) error
	ListBorrowed(ctx context.Context, admin, query string) ([]model.BorrowedBook, error)
	ListOverdue(ctx context.Context, admin, query string) ([]model.BorrowedBook, error)

	ListPayments(ctx context.Context, admin, query string) ([]model.Transaction, error)
	DeletePayment(ctx context.Context, admin, transactionUid string) error
}

var _ LibraryService = (*service.Service)(nil)
