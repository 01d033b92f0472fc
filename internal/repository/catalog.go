package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
)

const bookColumns = `id, book_uid, title, author, category, quantity, borrowing_fee, status, admin, created_at`

func (r *repository) CreateBook(ctx context.Context, admin string, req model.CreateBookRequest) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("book_uid", "title", "author", "category", "quantity", "borrowing_fee", "status", "admin").
		Values(uuid.New(), req.Title, req.Author, req.Category, req.Quantity, req.BorrowingFee, model.StatusForQuantity(req.Quantity), admin).
		Suffix("returning " + bookColumns).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) UpdateBook(ctx context.Context, admin, bookUid string, req model.UpdateBookRequest) (model.Book, error) {
	b := qb.Update(booksTableName).
		Where(sq.Eq{"book_uid": bookUid}).
		Where(sq.Eq{"admin": admin}).
		Suffix("returning " + bookColumns)

	set := false
	if req.Title != nil {
		b = b.Set("title", *req.Title)
		set = true
	}
	if req.Author != nil {
		b = b.Set("author", *req.Author)
		set = true
	}
	if req.Category != nil {
		b = b.Set("category", *req.Category)
		set = true
	}
	if req.Quantity != nil {
		// status is derived from quantity on every write
		b = b.Set("quantity", *req.Quantity).
			Set("status", model.StatusForQuantity(*req.Quantity))
		set = true
	}
	if req.BorrowingFee != nil {
		b = b.Set("borrowing_fee", *req.BorrowingFee)
		set = true
	}
	if !set {
		return r.GetBook(ctx, admin, bookUid)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) GetBook(ctx context.Context, admin, bookUid string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns).
		From(booksTableName).
		Where(sq.Eq{"book_uid": bookUid}).
		Where(sq.Eq{"admin": admin}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, admin, query string) ([]model.Book, error) {
	b := qb.Select(bookColumns).
		From(booksTableName).
		Where(sq.Eq{"admin": admin}).
		OrderBy("created_at desc")

	if query != "" {
		pattern := "%" + query + "%"
		b = b.Where(sq.Or{sq.ILike{"title": pattern}, sq.ILike{"author": pattern}})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, q, args...); err != nil {
		return nil, err
	}
	return books, nil
}

const bookOutstandingLoansQuery = `
select count(*) from borrowed_books where book_id = $1 and not returned`

// DeleteBook refuses to remove a book that still has unreturned ledger
// entries; returned entries are cascaded away by the schema.
func (r *repository) DeleteBook(ctx context.Context, admin, bookUid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var bookID int
	query, args, err := qb.Select("id").
		From(booksTableName).
		Where(sq.Eq{"book_uid": bookUid}).
		Where(sq.Eq{"admin": admin}).
		ToSql()
	if err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &bookID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	var outstanding int
	if err := tx.GetContext(ctx, &outstanding, bookOutstandingLoansQuery, bookID); err != nil {
		return err
	}
	if outstanding > 0 {
		return errs.ErrOutstandingLoans
	}

	if _, err := tx.ExecContext(ctx, `delete from books where id = $1`, bookID); err != nil {
		return err
	}
	return tx.Commit()
}
