package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/pkg/kafka"
)

const totalForAdminQuery = `
select coalesce(sum(amount), 0) from transactions where admin = $1`

const overdueExposureQuery = `
select coalesce(sum(fine), 0)
from borrowed_books
where admin = $1 and not returned and return_date < $2`

const dashboardCountsQuery = `
select
    (select count(*) from members where admin = $1)                                               as total_members,
    (select count(*) from books where admin = $1)                                                 as total_books,
    (select count(*) from borrowed_books where admin = $1 and not returned)                       as total_borrowed,
    (select count(*) from borrowed_books where admin = $1 and not returned and return_date < $2) as total_overdue`

const recordSettlementQuery = `
insert into settlement_stats (admin, payments_count, amount_total, updated_at)
values ($1, 1, $2, now())
on conflict (admin) do update
set payments_count = settlement_stats.payments_count + 1,
    amount_total   = settlement_stats.amount_total + excluded.amount_total,
    updated_at     = now()`

// insertTransaction appends a settlement record inside the caller's
// transaction so money is never recorded without the ledger mutation that
// produced it.
func insertTransaction(ctx context.Context, tx *sqlx.Tx, admin string, memberID int, amount float64, paymentMethod string) (model.Transaction, error) {
	query, args, err := qb.Insert(transactionsTableName).
		Columns("transaction_uid", "member_id", "amount", "payment_method", "admin").
		Values(uuid.New(), memberID, amount, paymentMethod, admin).
		Suffix("returning id, transaction_uid, amount, payment_method, admin, created_at").
		ToSql()
	if err != nil {
		return model.Transaction{}, err
	}

	var trx model.Transaction
	if err := tx.GetContext(ctx, &trx, query, args...); err != nil {
		return model.Transaction{}, err
	}
	return trx, nil
}

func (r *repository) ListTransactions(ctx context.Context, admin, query string) ([]model.Transaction, error) {
	b := qb.Select("t.id", "t.transaction_uid", "m.member_uid", "m.name as member_name",
		"t.amount", "t.payment_method", "t.admin", "t.created_at").
		From(transactionsTableName + " t").
		Join(membersTableName + " m on m.id = t.member_id").
		Where(sq.Eq{"t.admin": admin}).
		OrderBy("t.created_at desc")

	if query != "" {
		b = b.Where(sq.ILike{"m.name": "%" + query + "%"})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	items := make([]model.Transaction, 0)
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DeleteTransaction(ctx context.Context, admin, transactionUid string) error {
	query, args, err := qb.Delete(transactionsTableName).
		Where(sq.Eq{"transaction_uid": transactionUid}).
		Where(sq.Eq{"admin": admin}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) TotalForAdmin(ctx context.Context, admin string) (float64, error) {
	var total float64
	if err := r.db.GetContext(ctx, &total, totalForAdminQuery, admin); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) OverdueExposure(ctx context.Context, admin string, today time.Time) (float64, error) {
	var total float64
	if err := r.db.GetContext(ctx, &total, overdueExposureQuery, admin, today.Format(time.DateOnly)); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) Dashboard(ctx context.Context, admin string, today time.Time) (model.Dashboard, error) {
	var d model.Dashboard
	if err := r.db.GetContext(ctx, &d, dashboardCountsQuery, admin, today.Format(time.DateOnly)); err != nil {
		return model.Dashboard{}, err
	}

	query, args, err := qb.Select(bookColumns).
		From(booksTableName).
		Where(sq.Eq{"admin": admin}).
		OrderBy("created_at desc").
		Limit(4).
		ToSql()
	if err != nil {
		return model.Dashboard{}, err
	}
	d.RecentBooks = make([]model.Book, 0, 4)
	if err := r.db.SelectContext(ctx, &d.RecentBooks, query, args...); err != nil {
		return model.Dashboard{}, err
	}
	return d, nil
}

func (r *repository) RecordSettlement(ctx context.Context, ev kafka.EventSettlement) error {
	_, err := r.db.ExecContext(ctx, recordSettlementQuery, ev.Admin, ev.Amount)
	return err
}
