package mentorship

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// ScenarioTestSuite runs the service against the Redis repositories
type ScenarioTestSuite struct {
	suite.Suite
	mr          *miniredis.Miniredis
	client      *redis.Client
	ledgerRepo  ledgerRepo.Repository
	sessionRepo sessionRepo.Repository
	userRepo    userRepo.Repository
	service     *service
	ctx         context.Context
	when        time.Time
}

func (s *ScenarioTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.ctx = context.Background()
	s.when = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	ledger, err := ledgerRepo.NewRedis(&ledgerRepo.Config{
		RedisClient:   s.client,
		Clock:         clock.New(),
		UUIDGenerator: uuid.New(),
	})
	s.Require().NoError(err)
	sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	users, err := userRepo.NewRedis(&userRepo.Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.ledgerRepo, s.sessionRepo, s.userRepo = ledger, sessions, users

	s.service = s.newService(ledger)
}

func (s *ScenarioTestSuite) newService(ledger ledgerRepo.Repository) *service {
	svc, err := New(&Config{
		RefundOnCancel: true,
		LedgerRepo:     ledger,
		SessionRepo:    s.sessionRepo,
		UserRepo:       s.userRepo,
		Clock:          clock.New(),
		UUIDGenerator:  uuid.New(),
	})
	s.Require().NoError(err)
	return svc
}

// lostReplyLedger applies the first write for a reason and then reports a
// failure, as when a reply is lost after the store committed the change
type lostReplyLedger struct {
	ledgerRepo.Repository
	reason models.LedgerReason

	mu   sync.Mutex
	lost bool
}

func (l *lostReplyLedger) loseReply(reason models.LedgerReason) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost || reason != l.reason {
		return false
	}
	l.lost = true
	return true
}

func (l *lostReplyLedger) Debit(ctx context.Context, input *ledgerRepo.DebitInput) (*ledgerRepo.DebitOutput, error) {
	output, err := l.Repository.Debit(ctx, input)
	if err == nil && l.loseReply(input.Reason) {
		return nil, errors.New("i/o timeout")
	}
	return output, err
}

func (l *lostReplyLedger) Credit(ctx context.Context, input *ledgerRepo.CreditInput) (*ledgerRepo.CreditOutput, error) {
	output, err := l.Repository.Credit(ctx, input)
	if err == nil && l.loseReply(input.Reason) {
		return nil, errors.New("i/o timeout")
	}
	return output, err
}

func (s *ScenarioTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestScenarioTestSuite(t *testing.T) {
	suite.Run(t, new(ScenarioTestSuite))
}

func (s *ScenarioTestSuite) addUser(id string, credits int64, available bool) {
	s.Require().NoError(s.userRepo.CreateUser(s.ctx, &userRepo.CreateUserInput{
		User: &models.User{ID: id, Name: id, Email: id + "@example.com", Available: available},
	}))
	s.Require().NoError(s.ledgerRepo.OpenAccount(s.ctx, &ledgerRepo.OpenAccountInput{UserID: id}))
	if credits > 0 {
		_, err := s.ledgerRepo.Credit(s.ctx, &ledgerRepo.CreditInput{
			UserID: id,
			Amount: credits,
			Reason: models.LedgerReasonInitialGrant,
		})
		s.Require().NoError(err)
	}
}

func (s *ScenarioTestSuite) balance(id string) int64 {
	output, err := s.ledgerRepo.GetBalance(s.ctx, &ledgerRepo.GetBalanceInput{UserID: id})
	s.Require().NoError(err)
	return output.Balance
}

// assertEntriesMatchBalance checks the ledger never drifts from its entries
func (s *ScenarioTestSuite) assertEntriesMatchBalance(id string) {
	output, err := s.ledgerRepo.ListEntries(s.ctx, &ledgerRepo.ListEntriesInput{UserID: id})
	s.Require().NoError(err)

	var sum int64
	for _, entry := range output.Entries {
		sum += entry.Amount
	}
	s.Equal(s.balance(id), sum, "entries of %s", id)
}

func (s *ScenarioTestSuite) book(mentee, mentor string) *models.MentorshipSession {
	output, err := s.service.Book(s.ctx, &BookInput{MenteeID: mentee, MentorID: mentor, ScheduledTime: s.when})
	s.Require().NoError(err)
	return output.Session
}

func (s *ScenarioTestSuite) TestFullLifecycle() {
	s.addUser("mentor", 10, true)
	s.addUser("mentee", 10, false)

	session := s.book("mentee", "mentor")
	s.Equal(int64(0), s.balance("mentee"))

	_, err := s.service.Accept(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)

	output, err := s.service.Complete(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)
	s.Equal(int64(20), output.LedgerEntry.BalanceAfter)
	s.Equal(int64(20), s.balance("mentor"))

	_, err = s.service.SubmitFeedback(s.ctx, &SubmitFeedbackInput{SessionID: session.ID, ActorID: "mentee", Feedback: "Great session"})
	s.Require().NoError(err)

	_, err = s.service.SubmitFeedback(s.ctx, &SubmitFeedbackInput{SessionID: session.ID, ActorID: "mentee", Feedback: "Again"})
	s.ErrorIs(err, ErrConflict)

	history, err := s.service.History(s.ctx, &HistoryInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Require().Len(history.Sessions, 1)
	s.Equal("Great session", history.Sessions[0].Feedback)

	upcoming, err := s.service.Upcoming(s.ctx, &UpcomingInput{UserID: "mentor", Role: models.SessionRoleMentor})
	s.Require().NoError(err)
	s.Empty(upcoming.Sessions)

	s.assertEntriesMatchBalance("mentor")
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestRejectRefundsMentee() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)

	session := s.book("mentee", "mentor")

	upcoming, err := s.service.Upcoming(s.ctx, &UpcomingInput{UserID: "mentee", Role: models.SessionRoleMentee})
	s.Require().NoError(err)
	s.Len(upcoming.Sessions, 1)

	_, err = s.service.Update(s.ctx, &UpdateInput{SessionID: session.ID, ActorID: "mentor", Type: models.SessionStatusCanceled})
	s.Require().NoError(err)
	s.Equal(int64(10), s.balance("mentee"))

	_, err = s.service.Reject(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.ErrorIs(err, ErrConflict)
	s.Equal(int64(10), s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestConcurrentBookingsSpendOnce() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Book(context.Background(), &BookInput{
				MenteeID:      "mentee",
				MentorID:      "mentor",
				ScheduledTime: s.when.Add(time.Duration(i) * time.Hour),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrInsufficientCredits)
	}
	s.Equal(1, succeeded)
	s.Equal(int64(0), s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestConcurrentCompletePaysOnce() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)

	session := s.book("mentee", "mentor")
	_, err := s.service.Accept(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Complete(context.Background(), &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrConflict)
	}
	s.Equal(1, succeeded)
	s.Equal(DefaultMentorPayout, s.balance("mentor"))
	s.assertEntriesMatchBalance("mentor")
}

func (s *ScenarioTestSuite) TestCancelRacesComplete() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)

	session := s.book("mentee", "mentor")
	_, err := s.service.Accept(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)

	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = s.service.Complete(context.Background(), &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
				return
			}
			_, errs[i] = s.service.Cancel(context.Background(), &TransitionInput{SessionID: session.ID, ActorID: "mentee"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(1, succeeded)

	final, err := s.sessionRepo.GetSession(s.ctx, &sessionRepo.GetSessionInput{SessionID: session.ID})
	s.Require().NoError(err)

	switch final.Status {
	case models.SessionStatusCompleted:
		s.Equal(DefaultMentorPayout, s.balance("mentor"))
		s.Equal(int64(0), s.balance("mentee"))
	case models.SessionStatusCanceled:
		s.Equal(int64(0), s.balance("mentor"))
		s.Equal(DefaultBookingCost, s.balance("mentee"))
	default:
		s.Failf("unexpected status", "status %s", final.Status)
	}
	s.assertEntriesMatchBalance("mentor")
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestConcurrentRetriesChargeOnce() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 50, false)

	const attempts = 5
	var wg sync.WaitGroup
	outputs := make([]*BookOutput, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = s.service.Book(context.Background(), &BookInput{
				MenteeID:       "mentee",
				MentorID:       "mentor",
				ScheduledTime:  s.when,
				IdempotencyKey: "checkout-42",
			})
		}(i)
	}
	wg.Wait()

	ids := make(map[string]struct{})
	for i, err := range errs {
		s.Require().NoError(err, fmt.Sprintf("attempt %d", i))
		ids[outputs[i].Session.ID] = struct{}{}
	}
	s.Len(ids, 1)
	s.Equal(int64(40), s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")

	sessions, err := s.sessionRepo.ListSessionsForUser(s.ctx, &sessionRepo.ListSessionsForUserInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Len(sessions.Sessions, 1)
}

func (s *ScenarioTestSuite) TestSequentialRetryAfterBalanceSpent() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)

	input := &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: s.when, IdempotencyKey: "k"}
	first, err := s.service.Book(s.ctx, input)
	s.Require().NoError(err)

	second, err := s.service.Book(s.ctx, input)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Session.ID, second.Session.ID)
	s.Equal(int64(0), second.Credits)
}

func (s *ScenarioTestSuite) TestCompleteWithLostPayoutReplyPaysOnce() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)
	s.service = s.newService(&lostReplyLedger{Repository: s.ledgerRepo, reason: models.LedgerReasonCompleted})

	session := s.book("mentee", "mentor")
	_, err := s.service.Accept(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)

	output, err := s.service.Complete(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusCompleted, output.Session.Status)
	s.Equal(DefaultMentorPayout, output.LedgerEntry.BalanceAfter)

	stored, err := s.sessionRepo.GetSession(s.ctx, &sessionRepo.GetSessionInput{SessionID: session.ID})
	s.Require().NoError(err)
	s.Equal(models.SessionStatusCompleted, stored.Status)

	_, err = s.service.Complete(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentor"})
	s.ErrorIs(err, ErrConflict)

	s.Equal(DefaultMentorPayout, s.balance("mentor"))
	s.assertEntriesMatchBalance("mentor")
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestCancelWithLostRefundReplyRefundsOnce() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)
	s.service = s.newService(&lostReplyLedger{Repository: s.ledgerRepo, reason: models.LedgerReasonRefund})

	session := s.book("mentee", "mentor")

	_, err := s.service.Cancel(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentee"})
	s.Require().NoError(err)

	_, err = s.service.Cancel(s.ctx, &TransitionInput{SessionID: session.ID, ActorID: "mentee"})
	s.ErrorIs(err, ErrConflict)

	s.Equal(DefaultBookingCost, s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")
}

func (s *ScenarioTestSuite) TestBookWithLostDebitReplyIsReversed() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 10, false)
	s.service = s.newService(&lostReplyLedger{Repository: s.ledgerRepo, reason: models.LedgerReasonBooking})

	_, err := s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: s.when})
	s.ErrorIs(err, ErrStorageFailure)

	s.Equal(int64(10), s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")

	sessions, err := s.sessionRepo.ListSessionsForUser(s.ctx, &sessionRepo.ListSessionsForUserInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Empty(sessions.Sessions)

	// The reversal leaves the balance free for a fresh attempt
	s.book("mentee", "mentor")
	s.Equal(int64(0), s.balance("mentee"))
}

func (s *ScenarioTestSuite) TestBookWithoutEnoughCreditsChangesNothing() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 5, false)

	_, err := s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: s.when})
	s.ErrorIs(err, ErrInsufficientCredits)

	s.Equal(int64(5), s.balance("mentee"))
	s.assertEntriesMatchBalance("mentee")

	for _, id := range []string{"mentee", "mentor"} {
		sessions, err := s.sessionRepo.ListSessionsForUser(s.ctx, &sessionRepo.ListSessionsForUserInput{UserID: id})
		s.Require().NoError(err)
		s.Empty(sessions.Sessions, id)
	}
}

func (s *ScenarioTestSuite) TestKeyReusedForDifferentBookingConflicts() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 30, false)

	_, err := s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: s.when, IdempotencyKey: "k"})
	s.Require().NoError(err)

	_, err = s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: s.when.Add(time.Hour), IdempotencyKey: "k"})
	s.ErrorIs(err, ErrConflict)
	s.Equal(int64(20), s.balance("mentee"))
}

func sessionIDs(sessions []*models.MentorshipSession) []string {
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	return ids
}

func (s *ScenarioTestSuite) TestListingsAreStableAcrossCalls() {
	s.addUser("mentor", 0, true)
	s.addUser("mentee", 70, false)

	times := []time.Time{s.when, s.when, s.when.Add(time.Hour), s.when.Add(2 * time.Hour)}
	for _, when := range times {
		output, err := s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: when})
		s.Require().NoError(err)
		_, err = s.service.Cancel(s.ctx, &TransitionInput{SessionID: output.Session.ID, ActorID: "mentee"})
		s.Require().NoError(err)
	}
	for _, when := range times[:3] {
		_, err := s.service.Book(s.ctx, &BookInput{MenteeID: "mentee", MentorID: "mentor", ScheduledTime: when.Add(24 * time.Hour)})
		s.Require().NoError(err)
	}

	firstHistory, err := s.service.History(s.ctx, &HistoryInput{UserID: "mentee"})
	s.Require().NoError(err)
	secondHistory, err := s.service.History(s.ctx, &HistoryInput{UserID: "mentee"})
	s.Require().NoError(err)
	s.Require().Len(firstHistory.Sessions, 4)
	s.Equal(sessionIDs(firstHistory.Sessions), sessionIDs(secondHistory.Sessions))

	for i := 1; i < len(firstHistory.Sessions); i++ {
		prev, next := firstHistory.Sessions[i-1], firstHistory.Sessions[i]
		s.False(prev.ScheduledTime.Before(next.ScheduledTime))
		if prev.ScheduledTime.Equal(next.ScheduledTime) {
			s.Greater(prev.ID, next.ID)
		}
	}

	firstUpcoming, err := s.service.Upcoming(s.ctx, &UpcomingInput{UserID: "mentee", Role: models.SessionRoleMentee})
	s.Require().NoError(err)
	secondUpcoming, err := s.service.Upcoming(s.ctx, &UpcomingInput{UserID: "mentee", Role: models.SessionRoleMentee})
	s.Require().NoError(err)
	s.Require().Len(firstUpcoming.Sessions, 3)
	s.Equal(sessionIDs(firstUpcoming.Sessions), sessionIDs(secondUpcoming.Sessions))

	for i := 1; i < len(firstUpcoming.Sessions); i++ {
		prev, next := firstUpcoming.Sessions[i-1], firstUpcoming.Sessions[i]
		s.False(prev.ScheduledTime.After(next.ScheduledTime))
		if prev.ScheduledTime.Equal(next.ScheduledTime) {
			s.Less(prev.ID, next.ID)
		}
	}
}
