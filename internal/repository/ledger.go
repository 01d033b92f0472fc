package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
)

const selectBookForLendQuery = `
select id, borrowing_fee, quantity
from books
where book_uid = $1 and admin = $2
for update`

const selectBorrowedForUpdateQuery = `
select id, book_id, member_id, fine, returned, return_date
from borrowed_books
where borrow_uid = $1 and admin = $2
for update`

const decBookQuantityQuery = `
update books
set quantity = quantity - 1,
    status   = case when quantity - 1 = 0 then 'not-available' else 'available' end
where id = $1`

const incBookQuantityQuery = `
update books
set quantity = quantity + 1,
    status   = 'available'
where id = $1`

const markReturnedQuery = `
update borrowed_books set returned = true where id = $1`

type borrowedRow struct {
	ID         int       `db:"id"`
	BookID     int       `db:"book_id"`
	MemberID   int       `db:"member_id"`
	Fine       float64   `db:"fine"`
	Returned   bool      `db:"returned"`
	ReturnDate time.Time `db:"return_date"`
}

// Lend creates one ledger entry per requested book, decrements each book's
// quantity and records a single fee transaction. Availability is checked
// under row locks inside the same transaction, so either the whole batch
// commits or none of it does.
func (r *repository) Lend(ctx context.Context, admin string, p model.LendParams) (model.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Transaction{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	query, args, err := qb.Select("id", "name").
		From(membersTableName).
		Where(sq.Eq{"member_uid": p.MemberUid}).
		Where(sq.Eq{"admin": admin}).
		ToSql()
	if err != nil {
		return model.Transaction{}, err
	}
	var member struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}
	if err := tx.GetContext(ctx, &member, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, errs.ErrNotFound
		}
		return model.Transaction{}, err
	}

	var amount float64
	for _, bookUid := range p.BookUids {
		var book struct {
			ID           int     `db:"id"`
			BorrowingFee float64 `db:"borrowing_fee"`
			Quantity     int     `db:"quantity"`
		}
		if err := tx.GetContext(ctx, &book, selectBookForLendQuery, bookUid, admin); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Transaction{}, errs.ErrBookUnavailable
			}
			return model.Transaction{}, err
		}
		if book.Quantity == 0 {
			return model.Transaction{}, errs.ErrBookUnavailable
		}

		insert, insArgs, err := qb.Insert(borrowedBooksTableName).
			Columns("borrow_uid", "member_id", "book_id", "return_date", "fine", "admin").
			Values(uuid.New(), member.ID, book.ID, p.ReturnDate.Format(time.DateOnly), p.Fine, admin).
			ToSql()
		if err != nil {
			return model.Transaction{}, err
		}
		if _, err := tx.ExecContext(ctx, insert, insArgs...); err != nil {
			r.log.Error("Lend insert", zap.String("q", insert), zap.Any("args", insArgs))
			return model.Transaction{}, err
		}

		if _, err := tx.ExecContext(ctx, decBookQuantityQuery, book.ID); err != nil {
			return model.Transaction{}, err
		}

		amount += book.BorrowingFee
	}

	trx, err := insertTransaction(ctx, tx, admin, member.ID, amount, p.PaymentMethod)
	if err != nil {
		return model.Transaction{}, err
	}
	trx.MemberUid = p.MemberUid
	trx.MemberName = member.Name

	if err := tx.Commit(); err != nil {
		return model.Transaction{}, errors.Wrap(err, "commit")
	}
	return trx, nil
}

// ReturnBook handles the on-time path. It fails closed: an already returned
// entry is an invalid transition and an overdue entry is routed to fine
// settlement.
func (r *repository) ReturnBook(ctx context.Context, admin, borrowUid string, today time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var bb borrowedRow
	if err := tx.GetContext(ctx, &bb, selectBorrowedForUpdateQuery, borrowUid, admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if bb.Returned {
		return errs.ErrInvalidState
	}
	if bb.ReturnDate.Before(today) {
		return errs.ErrFineDue
	}

	if _, err := tx.ExecContext(ctx, markReturnedQuery, bb.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, incBookQuantityQuery, bb.BookID); err != nil {
		return err
	}
	return tx.Commit()
}

// SettleFine marks the entry returned, restores the book copy and records
// exactly one transaction over the entry's fine. Re-invocation on a settled
// entry fails with ErrInvalidState.
func (r *repository) SettleFine(ctx context.Context, admin, borrowUid, paymentMethod string) (model.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Transaction{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var bb borrowedRow
	if err := tx.GetContext(ctx, &bb, selectBorrowedForUpdateQuery, borrowUid, admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, errs.ErrNotFound
		}
		return model.Transaction{}, err
	}
	if bb.Returned {
		return model.Transaction{}, errs.ErrInvalidState
	}

	if _, err := tx.ExecContext(ctx, markReturnedQuery, bb.ID); err != nil {
		return model.Transaction{}, err
	}
	if _, err := tx.ExecContext(ctx, incBookQuantityQuery, bb.BookID); err != nil {
		return model.Transaction{}, err
	}

	trx, err := insertTransaction(ctx, tx, admin, bb.MemberID, bb.Fine, paymentMethod)
	if err != nil {
		return model.Transaction{}, err
	}

	query, args, err := qb.Select("member_uid", "name").
		From(membersTableName).
		Where(sq.Eq{"id": bb.MemberID}).
		Where(sq.Eq{"admin": admin}).
		ToSql()
	if err != nil {
		return model.Transaction{}, err
	}
	var member struct {
		MemberUid string `db:"member_uid"`
		Name      string `db:"name"`
	}
	if err := tx.GetContext(ctx, &member, query, args...); err != nil {
		return model.Transaction{}, err
	}
	trx.MemberUid = member.MemberUid
	trx.MemberName = member.Name

	if err := tx.Commit(); err != nil {
		return model.Transaction{}, errors.Wrap(err, "commit")
	}
	return trx, nil
}

func (r *repository) UpdateBorrowedBook(ctx context.Context, admin, borrowUid string, req model.UpdateBorrowedBookRequest) (model.BorrowedBook, error) {
	b := qb.Update(borrowedBooksTableName).
		Where(sq.Eq{"borrow_uid": borrowUid}).
		Where(sq.Eq{"admin": admin}).
		Where(sq.Eq{"returned": false}).
		Suffix("returning borrow_uid")

	set := false
	if req.ReturnDate != nil {
		b = b.Set("return_date", *req.ReturnDate)
		set = true
	}
	if req.Fine != nil {
		b = b.Set("fine", *req.Fine)
		set = true
	}
	if !set {
		return r.getBorrowedBook(ctx, admin, borrowUid)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return model.BorrowedBook{}, err
	}

	var uid string
	if err := r.db.GetContext(ctx, &uid, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// distinguish a settled entry from a missing one
			if _, getErr := r.getBorrowedBook(ctx, admin, borrowUid); getErr == nil {
				return model.BorrowedBook{}, errs.ErrInvalidState
			}
			return model.BorrowedBook{}, errs.ErrNotFound
		}
		return model.BorrowedBook{}, err
	}
	return r.getBorrowedBook(ctx, admin, uid)
}

// DeleteBorrowedBook is the administrative override: the entry is removed
// and the copy always goes back on the shelf, the delete undoes the lend.
func (r *repository) DeleteBorrowedBook(ctx context.Context, admin, borrowUid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var bookID int
	err = tx.GetContext(ctx, &bookID,
		`delete from borrowed_books where borrow_uid = $1 and admin = $2 returning book_id`,
		borrowUid, admin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, incBookQuantityQuery, bookID); err != nil {
		return err
	}
	return tx.Commit()
}

const borrowedBookColumns = `bb.id, bb.borrow_uid, m.member_uid, m.name as member_name, b.book_uid, b.title as book_title, bb.return_date, bb.fine, bb.returned, bb.admin, bb.created_at`

func (r *repository) borrowedBooksBuilder(admin string) sq.SelectBuilder {
	return qb.Select(borrowedBookColumns).
		From(borrowedBooksTableName + " bb").
		Join(membersTableName + " m on m.id = bb.member_id").
		Join(booksTableName + " b on b.id = bb.book_id").
		Where(sq.Eq{"bb.admin": admin})
}

func (r *repository) getBorrowedBook(ctx context.Context, admin, borrowUid string) (model.BorrowedBook, error) {
	query, args, err := r.borrowedBooksBuilder(admin).
		Where(sq.Eq{"bb.borrow_uid": borrowUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.BorrowedBook{}, err
	}

	var bb model.BorrowedBook
	if err := r.db.GetContext(ctx, &bb, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BorrowedBook{}, errs.ErrNotFound
		}
		return model.BorrowedBook{}, err
	}
	return bb, nil
}

func (r *repository) ListBorrowedBooks(ctx context.Context, admin, query string, overdueOnly bool, today time.Time) ([]model.BorrowedBook, error) {
	b := r.borrowedBooksBuilder(admin).OrderBy("bb.created_at desc")

	if query != "" {
		pattern := "%" + query + "%"
		b = b.Where(sq.Or{sq.ILike{"b.title": pattern}, sq.ILike{"b.author": pattern}})
	}
	if overdueOnly {
		b = b.Where(sq.Eq{"bb.returned": false}).
			Where(sq.Lt{"bb.return_date": today.Format(time.DateOnly)})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBorrowedBooks", zap.String("query", q), zap.Any("args", args))

	items := make([]model.BorrowedBook, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}
