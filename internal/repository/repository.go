package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/pkg/kafka"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

// Repository is the persistence boundary. Every method is scoped by the
// acting admin; a row that belongs to another admin behaves exactly like a
// missing row.
type Repository interface {
	CreateBook(ctx context.Context, admin string, req model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, admin, bookUid string, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, admin, bookUid string) error
	GetBook(ctx context.Context, admin, bookUid string) (model.Book, error)
	ListBooks(ctx context.Context, admin, query string) ([]model.Book, error)

	CreateMember(ctx context.Context, admin string, req model.CreateMemberRequest) (model.Member, error)
	UpdateMember(ctx context.Context, admin, memberUid string, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, admin, memberUid string) error
	ListMembers(ctx context.Context, admin, query string) ([]model.Member, error)
	AmountDue(ctx context.Context, admin, memberUid string) (float64, error)

	Lend(ctx context.Context, admin string, p model.LendParams) (model.Transaction, error)
	ReturnBook(ctx context.Context, admin, borrowUid string, today time.Time) error
	SettleFine(ctx context.Context, admin, borrowUid, paymentMethod string) (model.Transaction, error)
	UpdateBorrowedBook(ctx context.Context, admin, borrowUid string, req model.UpdateBorrowedBookRequest) (model.BorrowedBook, error)
	DeleteBorrowedBook(ctx context.Context, admin, borrowUid string) error
	ListBorrowedBooks(ctx context.Context, admin, query string, overdueOnly bool, today time.Time) ([]model.BorrowedBook, error)

	ListTransactions(ctx context.Context, admin, query string) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, admin, transactionUid string) error
	TotalForAdmin(ctx context.Context, admin string) (float64, error)
	OverdueExposure(ctx context.Context, admin string, today time.Time) (float64, error)
	Dashboard(ctx context.Context, admin string, today time.Time) (model.Dashboard, error)

	RecordSettlement(ctx context.Context, ev kafka.EventSettlement) error
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName         = `books`
	membersTableName       = `members`
	borrowedBooksTableName = `borrowed_books`
	transactionsTableName  = `transactions`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
