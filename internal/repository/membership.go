package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
)

// amount_due is derived, never stored: the sum of fines on the member's
// unreturned ledger entries.
const amountDueColumn = `coalesce((select sum(bb.fine) from borrowed_books bb where bb.member_id = m.id and not bb.returned), 0) as amount_due`

const amountDueQuery = `
select coalesce(sum(bb.fine), 0)
from borrowed_books bb
join members m on m.id = bb.member_id
where m.member_uid = $1 and bb.admin = $2 and not bb.returned`

const memberOutstandingLoansQuery = `
select count(*) from borrowed_books where member_id = $1 and not returned`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *repository) CreateMember(ctx context.Context, admin string, req model.CreateMemberRequest) (model.Member, error) {
	query, args, err := qb.Insert(membersTableName).
		Columns("member_uid", "name", "email", "admin").
		Values(uuid.New(), req.Name, req.Email, admin).
		Suffix("returning id, member_uid, name, email, admin, created_at").
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	var member model.Member
	if err := r.db.GetContext(ctx, &member, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, errs.ErrDuplicateEmail
		}
		r.log.Error("CreateMember", zap.String("q", query), zap.Any("args", args))
		return model.Member{}, err
	}
	return member, nil
}

func (r *repository) UpdateMember(ctx context.Context, admin, memberUid string, req model.UpdateMemberRequest) (model.Member, error) {
	b := qb.Update(membersTableName).
		Where(sq.Eq{"member_uid": memberUid}).
		Where(sq.Eq{"admin": admin}).
		Suffix("returning member_uid")

	set := false
	if req.Name != nil {
		b = b.Set("name", *req.Name)
		set = true
	}
	if req.Email != nil {
		b = b.Set("email", *req.Email)
		set = true
	}
	if !set {
		return r.getMember(ctx, admin, memberUid)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return model.Member{}, err
	}

	var uid string
	if err := r.db.GetContext(ctx, &uid, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.Member{}, errs.ErrDuplicateEmail
		}
		return model.Member{}, err
	}
	return r.getMember(ctx, admin, uid)
}

func (r *repository) getMember(ctx context.Context, admin, memberUid string) (model.Member, error) {
	query, args, err := qb.Select("m.id", "m.member_uid", "m.name", "m.email", "m.admin", "m.created_at").
		Column(amountDueColumn).
		From(membersTableName + " m").
		Where(sq.Eq{"m.member_uid": memberUid}).
		Where(sq.Eq{"m.admin": admin}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}

	var member model.Member
	if err := r.db.GetContext(ctx, &member, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, err
	}
	return member, nil
}

func (r *repository) ListMembers(ctx context.Context, admin, query string) ([]model.Member, error) {
	b := qb.Select("m.id", "m.member_uid", "m.name", "m.email", "m.admin", "m.created_at").
		Column(amountDueColumn).
		From(membersTableName + " m").
		Where(sq.Eq{"m.admin": admin}).
		OrderBy("m.created_at desc")

	if query != "" {
		b = b.Where(sq.ILike{"m.name": "%" + query + "%"})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	members := make([]model.Member, 0)
	if err := r.db.SelectContext(ctx, &members, q, args...); err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteMember refuses while the member still holds unreturned books;
// returned entries and transactions are cascaded away by the schema.
func (r *repository) DeleteMember(ctx context.Context, admin, memberUid string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var memberID int
	query, args, err := qb.Select("id").
		From(membersTableName).
		Where(sq.Eq{"member_uid": memberUid}).
		Where(sq.Eq{"admin": admin}).
		ToSql()
	if err != nil {
		return err
	}
	if err := tx.GetContext(ctx, &memberID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}

	var outstanding int
	if err := tx.GetContext(ctx, &outstanding, memberOutstandingLoansQuery, memberID); err != nil {
		return err
	}
	if outstanding > 0 {
		return errs.ErrOutstandingLoans
	}

	if _, err := tx.ExecContext(ctx, `delete from members where id = $1`, memberID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *repository) AmountDue(ctx context.Context, admin, memberUid string) (float64, error) {
	var amount float64
	if err := r.db.GetContext(ctx, &amount, amountDueQuery, memberUid, admin); err != nil {
		return 0, err
	}
	return amount, nil
}
