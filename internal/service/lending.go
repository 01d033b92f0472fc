package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/errs"
	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/pkg/kafka"
)

// Lend checks the member's borrowing limit and lends the whole book set as
// one batch. The repository makes the batch atomic; a single unavailable
// book aborts everything.
func (s *Service) Lend(ctx context.Context, admin string, req model.LendRequest) (model.Transaction, error) {
	amountDue, err := s.repo.AmountDue(ctx, admin, req.MemberUid)
	if err != nil {
		return model.Transaction{}, err
	}
	if amountDue > borrowLimit {
		return model.Transaction{}, errs.ErrBorrowLimitExceeded
	}

	returnDate, err := time.Parse(time.DateOnly, req.ReturnDate)
	if err != nil {
		return model.Transaction{}, err
	}

	trx, err := s.repo.Lend(ctx, admin, model.LendParams{
		MemberUid:     req.MemberUid,
		BookUids:      req.BookUids,
		ReturnDate:    returnDate,
		Fine:          req.Fine,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return model.Transaction{}, err
	}

	s.publishSettlement(kafka.EventSettlement{
		Admin:         admin,
		MemberUid:     trx.MemberUid,
		Amount:        trx.Amount,
		PaymentMethod: trx.PaymentMethod,
		Kind:          kafka.KindLendFee,
	})
	return trx, nil
}

func (s *Service) ReturnBook(ctx context.Context, admin, borrowUid string) error {
	return s.repo.ReturnBook(ctx, admin, borrowUid, s.today())
}

func (s *Service) SettleFine(ctx context.Context, admin, borrowUid string, req model.SettleFineRequest) (model.Transaction, error) {
	trx, err := s.repo.SettleFine(ctx, admin, borrowUid, req.PaymentMethod)
	if err != nil {
		return model.Transaction{}, err
	}

	s.publishSettlement(kafka.EventSettlement{
		Admin:         admin,
		MemberUid:     trx.MemberUid,
		Amount:        trx.Amount,
		PaymentMethod: trx.PaymentMethod,
		Kind:          kafka.KindFine,
	})
	return trx, nil
}

func (s *Service) UpdateBorrowed(ctx context.Context, admin, borrowUid string, req model.UpdateBorrowedBookRequest) (model.BorrowedBook, error) {
	return s.repo.UpdateBorrowedBook(ctx, admin, borrowUid, req)
}

func (s *Service) DeleteBorrowed(ctx context.Context, admin, borrowUid string) error {
	return s.repo.DeleteBorrowedBook(ctx, admin, borrowUid)
}

func (s *Service) ListBorrowed(ctx context.Context, admin, query string) ([]model.BorrowedBook, error) {
	return s.repo.ListBorrowedBooks(ctx, admin, query, false, s.today())
}

func (s *Service) ListOverdue(ctx context.Context, admin, query string) ([]model.BorrowedBook, error) {
	return s.repo.ListBorrowedBooks(ctx, admin, query, true, s.today())
}

// publishSettlement is best effort: a broker failure must not undo a
// committed transaction, so it is only logged.
func (s *Service) publishSettlement(ev kafka.EventSettlement) {
	if s.producer == nil {
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal settlement event", zap.Error(err))
		return
	}
	if _, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: kafka.SettlementTopic,
		Value: sarama.ByteEncoder(value),
	}); err != nil {
		s.log.Error("publish settlement event", zap.Error(err))
	}
}
