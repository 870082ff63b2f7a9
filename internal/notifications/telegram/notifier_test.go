package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/notifications"
	"github.com/KirkDiggler/mentorlink/internal/notifications/telegram/mocks"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	userMocks "github.com/KirkDiggler/mentorlink/internal/repositories/user/mocks"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
	messagingMocks "github.com/KirkDiggler/mentorlink/internal/services/messaging/mocks"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const testChatID int64 = -100200300

type NotifierTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockSender    *mocks.MockSender
	mockMessaging *messagingMocks.MockService
	mockUserRepo  *userMocks.MockRepository
	notifier      *Notifier
	ctx           context.Context
	session       *models.MentorshipSession
}

func (s *NotifierTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockSender = mocks.NewMockSender(s.mockCtrl)
	s.mockMessaging = messagingMocks.NewMockService(s.mockCtrl)
	s.mockUserRepo = userMocks.NewMockRepository(s.mockCtrl)
	s.ctx = context.Background()

	notifier, err := New(&Config{
		ChatID:    testChatID,
		Client:    s.mockSender,
		Messaging: s.mockMessaging,
		UserRepo:  s.mockUserRepo,
	})
	s.Require().NoError(err)
	s.notifier = notifier

	when := time.Date(2025, 3, 3, 15, 30, 0, 0, time.UTC)
	s.session = &models.MentorshipSession{
		ID:            "session-1",
		MentorID:      "mentor",
		MenteeID:      "mentee",
		ScheduledTime: when,
		Status:        models.SessionStatusCompleted,
		CreatedAt:     when,
		UpdatedAt:     when,
	}
}

func (s *NotifierTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(NotifierTestSuite))
}

func (s *NotifierTestSuite) TestNew_Validation() {
	_, err := New(nil)
	s.Error(err)

	_, err = New(&Config{Client: s.mockSender, Messaging: s.mockMessaging, UserRepo: s.mockUserRepo})
	s.Error(err)

	_, err = New(&Config{ChatID: testChatID, Client: s.mockSender, UserRepo: s.mockUserRepo})
	s.Error(err)

	_, err = New(&Config{ChatID: testChatID, Client: s.mockSender, Messaging: s.mockMessaging})
	s.Error(err)

	// Without a client a token is needed to build one
	_, err = New(&Config{ChatID: testChatID, Messaging: s.mockMessaging, UserRepo: s.mockUserRepo})
	s.Error(err)
}

func (s *NotifierTestSuite) TestNotify_SendsMessage() {
	s.mockUserRepo.EXPECT().
		GetUser(s.ctx, &userRepo.GetUserInput{UserID: "mentor"}).
		Return(&models.User{ID: "mentor", Name: "Grace"}, nil)
	s.mockUserRepo.EXPECT().
		GetUser(s.ctx, &userRepo.GetUserInput{UserID: "mentee"}).
		Return(&models.User{ID: "mentee", Name: "Ada"}, nil)
	s.mockMessaging.EXPECT().
		GetSessionEventMessage(s.ctx, &messaging.GetSessionEventMessageInput{
			Event:         messaging.EventCompleted,
			MentorName:    "Grace",
			MenteeName:    "Ada",
			ScheduledTime: s.session.ScheduledTime,
		}).
		Return(&messaging.GetSessionEventMessageOutput{Title: "Session complete", Message: "Grace earned credits"}, nil)

	s.mockSender.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
			msg, ok := c.(tgbotapi.MessageConfig)
			s.Require().True(ok)
			s.Equal(testChatID, msg.ChatID)
			s.True(msg.DisableWebPagePreview)
			s.Contains(msg.Text, "Session complete")
			s.Contains(msg.Text, "Grace earned credits")
			s.Contains(msg.Text, "Session: session-1")
			s.Contains(msg.Text, "Status: completed")
			return tgbotapi.Message{MessageID: 1}, nil
		})

	s.NoError(s.notifier.Notify(s.ctx, &notifications.NotifyInput{
		Event:   messaging.EventCompleted,
		Session: s.session,
	}))
}

func (s *NotifierTestSuite) TestNotify_SendError() {
	s.mockUserRepo.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(nil, userRepo.ErrUserNotFound).Times(2)
	s.mockMessaging.EXPECT().
		GetSessionEventMessage(s.ctx, &messaging.GetSessionEventMessageInput{
			Event:         messaging.EventCompleted,
			MentorName:    "mentor",
			MenteeName:    "mentee",
			ScheduledTime: s.session.ScheduledTime,
		}).
		Return(&messaging.GetSessionEventMessageOutput{Title: "t", Message: "m"}, nil)
	s.mockSender.EXPECT().Send(gomock.Any()).Return(tgbotapi.Message{}, errors.New("chat not found"))

	err := s.notifier.Notify(s.ctx, &notifications.NotifyInput{
		Event:   messaging.EventCompleted,
		Session: s.session,
	})
	s.ErrorContains(err, "chat not found")
}

func (s *NotifierTestSuite) TestNotify_RenderError() {
	s.mockUserRepo.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(&models.User{Name: "x"}, nil).Times(2)
	s.mockMessaging.EXPECT().GetSessionEventMessage(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unknown event"))

	err := s.notifier.Notify(s.ctx, &notifications.NotifyInput{
		Event:   messaging.EventKind("bogus"),
		Session: s.session,
	})
	s.ErrorContains(err, "unknown event")
}

func (s *NotifierTestSuite) TestNotify_NilInput() {
	s.Error(s.notifier.Notify(s.ctx, nil))
	s.Error(s.notifier.Notify(s.ctx, &notifications.NotifyInput{Event: messaging.EventCompleted}))
}
