package service

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/AmmarMarediya/library-service/internal/model"
	"github.com/AmmarMarediya/library-service/internal/repository"
	"github.com/AmmarMarediya/library-service/pkg/kafka"
)

// borrowLimit is the fixed threshold on a member's outstanding fines that
// blocks further lending.
const borrowLimit = 500.0

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	producer sarama.SyncProducer
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for overdue computation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the business rules over the repository. producer may be
// nil, in which case settlement events are not published.
func NewService(repo repository.Repository, producer sarama.SyncProducer, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:      log,
		repo:     repo,
		producer: producer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today truncates the clock to a UTC date, the granularity of return_date.
func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) CreateBook(ctx context.Context, admin string, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.CreateBook(ctx, admin, req)
}

func (s *Service) UpdateBook(ctx context.Context, admin, bookUid string, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, admin, bookUid, req)
}

func (s *Service) DeleteBook(ctx context.Context, admin, bookUid string) error {
	return s.repo.DeleteBook(ctx, admin, bookUid)
}

func (s *Service) ListBooks(ctx context.Context, admin, query string) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, admin, query)
}

func (s *Service) CreateMember(ctx context.Context, admin string, req model.CreateMemberRequest) (model.Member, error) {
	return s.repo.CreateMember(ctx, admin, req)
}

func (s *Service) UpdateMember(ctx context.Context, admin, memberUid string, req model.UpdateMemberRequest) (model.Member, error) {
	return s.repo.UpdateMember(ctx, admin, memberUid, req)
}

func (s *Service) DeleteMember(ctx context.Context, admin, memberUid string) error {
	return s.repo.DeleteMember(ctx, admin, memberUid)
}

func (s *Service) ListMembers(ctx context.Context, admin, query string) ([]model.Member, error) {
	return s.repo.ListMembers(ctx, admin, query)
}

func (s *Service) ListPayments(ctx context.Context, admin, query string) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx, admin, query)
}

func (s *Service) DeletePayment(ctx context.Context, admin, transactionUid string) error {
	return s.repo.DeleteTransaction(ctx, admin, transactionUid)
}

func (s *Service) Dashboard(ctx context.Context, admin string) (model.Dashboard, error) {
	today := s.today()

	d, err := s.repo.Dashboard(ctx, admin, today)
	if err != nil {
		return model.Dashboard{}, err
	}
	if d.TotalCollected, err = s.repo.TotalForAdmin(ctx, admin); err != nil {
		return model.Dashboard{}, err
	}
	if d.OverdueExposure, err = s.repo.OverdueExposure(ctx, admin, today); err != nil {
		return model.Dashboard{}, err
	}
	return d, nil
}

// RecordSettlement folds a consumed settlement event into the per-admin
// aggregates.
func (s *Service) RecordSettlement(ctx context.Context, ev kafka.EventSettlement) error {
	return s.repo.RecordSettlement(ctx, ev)
}
