package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mockclock "github.com/KirkDiggler/mentorlink/internal/common/clock/mocks"
	mockuuid "github.com/KirkDiggler/mentorlink/internal/common/uuid/mocks"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mr            *miniredis.Miniredis
	client        *redis.Client
	mockClock     *mockclock.MockClock
	mockGenerator *mockuuid.MockGenerator
	repo          Repository
	ctx           context.Context
	now           time.Time
	nextID        atomic.Int64
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nextID.Store(0)
	s.mockClock = mockclock.NewMockClock(s.ctrl)
	s.mockClock.EXPECT().Now().Return(s.now).AnyTimes()
	s.mockGenerator = mockuuid.NewMockGenerator(s.ctrl)
	s.mockGenerator.EXPECT().NewID().DoAndReturn(func() string {
		return fmt.Sprintf("entry-%d", s.nextID.Add(1))
	}).AnyTimes()

	repo, err := NewRedis(&Config{
		RedisClient:   s.client,
		Clock:         s.mockClock,
		UUIDGenerator: s.mockGenerator,
	})
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
	s.ctrl.Finish()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) openWithBalance(userID string, balance int64) {
	s.Require().NoError(s.repo.OpenAccount(s.ctx, &OpenAccountInput{UserID: userID}))
	if balance > 0 {
		_, err := s.repo.Credit(s.ctx, &CreditInput{
			UserID: userID,
			Amount: balance,
			Reason: models.LedgerReasonInitialGrant,
		})
		s.Require().NoError(err)
	}
}

func (s *RedisRepositoryTestSuite) TestNewRedis_NilConfig() {
	_, err := NewRedis(nil)
	s.Error(err)

	_, err = NewRedis(&Config{})
	s.Error(err)

	_, err = NewRedis(&Config{RedisClient: s.client, Clock: s.mockClock})
	s.Error(err)
}

func (s *RedisRepositoryTestSuite) TestOpenAccount_StartsAtZero() {
	s.Require().NoError(s.repo.OpenAccount(s.ctx, &OpenAccountInput{UserID: "user-1"}))

	output, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.Equal(int64(0), output.Balance)
}

func (s *RedisRepositoryTestSuite) TestOpenAccount_KeepsExistingBalance() {
	s.openWithBalance("user-1", 25)

	s.Require().NoError(s.repo.OpenAccount(s.ctx, &OpenAccountInput{UserID: "user-1"}))

	output, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.Equal(int64(25), output.Balance)
}

func (s *RedisRepositoryTestSuite) TestDebit_HappyPath() {
	s.openWithBalance("mentee", 10)

	output, err := s.repo.Debit(s.ctx, &DebitInput{
		UserID:    "mentee",
		Amount:    10,
		Reason:    models.LedgerReasonBooking,
		SessionID: "session-1",
	})
	s.Require().NoError(err)
	s.Equal(int64(0), output.Balance)
	s.Equal(int64(-10), output.Entry.Amount)
	s.Equal(int64(0), output.Entry.BalanceAfter)
	s.Equal("session-1", output.Entry.SessionID)
	s.Equal("entry-2", output.Entry.ID)
	s.True(s.now.Equal(output.Entry.CreatedAt))
	s.False(output.Replayed)
}

func (s *RedisRepositoryTestSuite) TestDebit_SameSessionAppliedOnce() {
	s.openWithBalance("mentee", 10)
	input := &DebitInput{
		UserID:    "mentee",
		Amount:    10,
		Reason:    models.LedgerReasonBooking,
		SessionID: "session-1",
	}

	first, err := s.repo.Debit(s.ctx, input)
	s.Require().NoError(err)

	// The balance is spent, but a repeat of the same debit still answers
	second, err := s.repo.Debit(s.ctx, input)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Entry.ID, second.Entry.ID)
	s.Equal(int64(0), second.Balance)

	entries, err := s.repo.ListEntries(s.ctx, &ListEntriesInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Len(entries.Entries, 2)
}

func (s *RedisRepositoryTestSuite) TestCredit_SameSessionAppliedOnce() {
	s.openWithBalance("mentor", 0)
	input := &CreditInput{
		UserID:    "mentor",
		Amount:    10,
		Reason:    models.LedgerReasonCompleted,
		SessionID: "session-1",
	}

	first, err := s.repo.Credit(s.ctx, input)
	s.Require().NoError(err)
	s.False(first.Replayed)

	second, err := s.repo.Credit(s.ctx, input)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Entry.ID, second.Entry.ID)
	s.Equal(int64(10), second.Entry.BalanceAfter)

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentor"})
	s.Require().NoError(err)
	s.Equal(int64(10), balance.Balance)

	// A different reason on the same session is a separate entry
	_, err = s.repo.Credit(s.ctx, &CreditInput{
		UserID:    "mentor",
		Amount:    10,
		Reason:    models.LedgerReasonRefund,
		SessionID: "session-1",
	})
	s.Require().NoError(err)

	balance, err = s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentor"})
	s.Require().NoError(err)
	s.Equal(int64(20), balance.Balance)
}

func (s *RedisRepositoryTestSuite) TestConcurrentCredits_SameSessionAppliedOnce() {
	s.openWithBalance("mentor", 0)

	var wg sync.WaitGroup
	outputs := make([]*CreditOutput, 8)
	errs := make([]error, len(outputs))
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = s.repo.Credit(context.Background(), &CreditInput{
				UserID:    "mentor",
				Amount:    10,
				Reason:    models.LedgerReasonCompleted,
				SessionID: "session-1",
			})
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := range outputs {
		s.Require().NoError(errs[i])
		if !outputs[i].Replayed {
			applied++
		}
	}
	s.Equal(1, applied)

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentor"})
	s.Require().NoError(err)
	s.Equal(int64(10), balance.Balance)
}

func (s *RedisRepositoryTestSuite) TestCredit_ReversalNeedsOriginalEntry() {
	s.openWithBalance("mentee", 10)
	reversal := &CreditInput{
		UserID:    "mentee",
		Amount:    10,
		Reason:    models.LedgerReasonBookingReversal,
		SessionID: "session-1",
		Reverses:  models.LedgerReasonBooking,
	}

	_, err := s.repo.Credit(s.ctx, reversal)
	s.Require().ErrorIs(err, ErrNothingToReverse)

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Equal(int64(10), balance.Balance)

	_, err = s.repo.Debit(s.ctx, &DebitInput{
		UserID:    "mentee",
		Amount:    10,
		Reason:    models.LedgerReasonBooking,
		SessionID: "session-1",
	})
	s.Require().NoError(err)

	output, err := s.repo.Credit(s.ctx, reversal)
	s.Require().NoError(err)
	s.Equal(int64(10), output.Balance)

	_, err = s.repo.Credit(s.ctx, &CreditInput{UserID: "mentee", Amount: 1, Reverses: models.LedgerReasonBooking})
	s.Error(err)
}

func (s *RedisRepositoryTestSuite) TestDebit_InsufficientFundsLeavesBalance() {
	s.openWithBalance("mentee", 5)

	output, err := s.repo.Debit(s.ctx, &DebitInput{
		UserID: "mentee",
		Amount: 10,
		Reason: models.LedgerReasonBooking,
	})
	s.Require().ErrorIs(err, ErrInsufficientFunds)
	s.Nil(output)

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Equal(int64(5), balance.Balance)

	entries, err := s.repo.ListEntries(s.ctx, &ListEntriesInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Len(entries.Entries, 1)
}

func (s *RedisRepositoryTestSuite) TestDebit_UnknownAccount() {
	_, err := s.repo.Debit(s.ctx, &DebitInput{
		UserID: "ghost",
		Amount: 1,
		Reason: models.LedgerReasonBooking,
	})
	s.ErrorIs(err, ErrAccountNotFound)
}

func (s *RedisRepositoryTestSuite) TestCredit_UnknownAccount() {
	_, err := s.repo.Credit(s.ctx, &CreditInput{
		UserID: "ghost",
		Amount: 1,
		Reason: models.LedgerReasonCompleted,
	})
	s.ErrorIs(err, ErrAccountNotFound)
}

func (s *RedisRepositoryTestSuite) TestInvalidAmounts() {
	s.openWithBalance("user-1", 10)

	_, err := s.repo.Debit(s.ctx, &DebitInput{UserID: "user-1", Amount: 0})
	s.ErrorIs(err, ErrInvalidAmount)

	_, err = s.repo.Credit(s.ctx, &CreditInput{UserID: "user-1", Amount: -3})
	s.ErrorIs(err, ErrInvalidAmount)
}

func (s *RedisRepositoryTestSuite) TestGetBalance_UnknownAccount() {
	_, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "ghost"})
	s.ErrorIs(err, ErrAccountNotFound)
}

func (s *RedisRepositoryTestSuite) TestListEntries_NewestFirstWithLimit() {
	s.openWithBalance("user-1", 20)

	_, err := s.repo.Debit(s.ctx, &DebitInput{UserID: "user-1", Amount: 10, Reason: models.LedgerReasonBooking})
	s.Require().NoError(err)
	_, err = s.repo.Credit(s.ctx, &CreditInput{UserID: "user-1", Amount: 10, Reason: models.LedgerReasonRefund})
	s.Require().NoError(err)

	all, err := s.repo.ListEntries(s.ctx, &ListEntriesInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.Require().Len(all.Entries, 3)
	s.Equal(models.LedgerReasonRefund, all.Entries[0].Reason)
	s.Equal(int64(20), all.Entries[0].BalanceAfter)
	s.Equal(models.LedgerReasonBooking, all.Entries[1].Reason)
	s.Equal(int64(10), all.Entries[1].BalanceAfter)
	s.Equal(models.LedgerReasonInitialGrant, all.Entries[2].Reason)

	limited, err := s.repo.ListEntries(s.ctx, &ListEntriesInput{UserID: "user-1", Limit: 1})
	s.Require().NoError(err)
	s.Len(limited.Entries, 1)
}

func (s *RedisRepositoryTestSuite) TestConcurrentDebits_ExactlyOneSucceeds() {
	s.openWithBalance("mentee", 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.repo.Debit(context.Background(), &DebitInput{
				UserID: "mentee",
				Amount: 10,
				Reason: models.LedgerReasonBooking,
			})
		}(i)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case err == ErrInsufficientFunds:
			insufficient++
		}
	}
	s.Equal(1, successes)
	s.Equal(1, insufficient)

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Equal(int64(0), balance.Balance)
}

func (s *RedisRepositoryTestSuite) TestRandomOperations_NeverNegativeAndEntriesSumToBalance() {
	s.openWithBalance("user-1", 15)
	rng := rand.New(rand.NewSource(42))
	expected := int64(15)

	for i := 0; i < 200; i++ {
		amount := int64(rng.Intn(12) + 1)
		if rng.Intn(2) == 0 {
			output, err := s.repo.Debit(s.ctx, &DebitInput{UserID: "user-1", Amount: amount, Reason: models.LedgerReasonBooking})
			if amount > expected {
				s.Require().ErrorIs(err, ErrInsufficientFunds)
				continue
			}
			s.Require().NoError(err)
			expected -= amount
			s.Equal(expected, output.Balance)
		} else {
			output, err := s.repo.Credit(s.ctx, &CreditInput{UserID: "user-1", Amount: amount, Reason: models.LedgerReasonCompleted})
			s.Require().NoError(err)
			expected += amount
			s.Equal(expected, output.Balance)
		}
		s.GreaterOrEqual(expected, int64(0))
	}

	balance, err := s.repo.GetBalance(s.ctx, &GetBalanceInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.Equal(expected, balance.Balance)

	entries, err := s.repo.ListEntries(s.ctx, &ListEntriesInput{UserID: "user-1"})
	s.Require().NoError(err)
	var sum int64
	for _, entry := range entries.Entries {
		sum += entry.Amount
		s.GreaterOrEqual(entry.BalanceAfter, int64(0))
	}
	s.Equal(balance.Balance, sum)
}
