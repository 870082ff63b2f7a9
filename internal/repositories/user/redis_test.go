package user

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	repo   Repository
	ctx    context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) createUser(id, name string, available bool) {
	err := s.repo.CreateUser(s.ctx, &CreateUserInput{
		User: &models.User{
			ID:        id,
			Name:      name,
			Email:     id + "@example.com",
			Available: available,
			CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	})
	s.Require().NoError(err)
}

func (s *RedisRepositoryTestSuite) TestNewRedis_NilConfig() {
	_, err := NewRedis(nil)
	s.Error(err)

	_, err = NewRedis(&Config{})
	s.Error(err)
}

func (s *RedisRepositoryTestSuite) TestCreateAndGetUser() {
	err := s.repo.CreateUser(s.ctx, &CreateUserInput{
		User: &models.User{
			ID:      "user-1",
			Name:    "Ada",
			Email:   " Ada@Example.com ",
			Bio:     "compilers",
			Credits: 99,
		},
	})
	s.Require().NoError(err)

	u, err := s.repo.GetUser(s.ctx, &GetUserInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.Equal("Ada", u.Name)
	s.Equal("ada@example.com", u.Email)
	s.Equal("compilers", u.Bio)
	s.Zero(u.Credits)
}

func (s *RedisRepositoryTestSuite) TestCreateUser_Conflicts() {
	s.createUser("user-1", "Ada", false)

	err := s.repo.CreateUser(s.ctx, &CreateUserInput{
		User: &models.User{ID: "user-2", Name: "Other", Email: "USER-1@example.com"},
	})
	s.ErrorIs(err, ErrEmailTaken)

	err = s.repo.CreateUser(s.ctx, &CreateUserInput{
		User: &models.User{ID: "user-1", Name: "Other", Email: "fresh@example.com"},
	})
	s.ErrorIs(err, ErrUserExists)

	// The failed attempt must not keep the email claimed
	err = s.repo.CreateUser(s.ctx, &CreateUserInput{
		User: &models.User{ID: "user-3", Name: "Fresh", Email: "fresh@example.com"},
	})
	s.NoError(err)
}

func (s *RedisRepositoryTestSuite) TestCreateUser_Invalid() {
	s.Error(s.repo.CreateUser(s.ctx, &CreateUserInput{User: &models.User{ID: "user-1", Name: "Ada"}}))
	s.Error(s.repo.CreateUser(s.ctx, &CreateUserInput{User: &models.User{ID: "user-1", Email: "a@b.c"}}))
	s.Error(s.repo.CreateUser(s.ctx, &CreateUserInput{}))
}

func (s *RedisRepositoryTestSuite) TestGetUser_NotFound() {
	_, err := s.repo.GetUser(s.ctx, &GetUserInput{UserID: "missing"})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RedisRepositoryTestSuite) TestSetAvailability() {
	s.createUser("user-1", "Ada", false)

	s.Require().NoError(s.repo.SetAvailability(s.ctx, &SetAvailabilityInput{UserID: "user-1", Available: true}))

	u, err := s.repo.GetUser(s.ctx, &GetUserInput{UserID: "user-1"})
	s.Require().NoError(err)
	s.True(u.Available)

	output, err := s.repo.ListAvailableMentors(s.ctx, &ListAvailableMentorsInput{})
	s.Require().NoError(err)
	s.Len(output.Mentors, 1)

	s.Require().NoError(s.repo.SetAvailability(s.ctx, &SetAvailabilityInput{UserID: "user-1", Available: false}))

	output, err = s.repo.ListAvailableMentors(s.ctx, &ListAvailableMentorsInput{})
	s.Require().NoError(err)
	s.Empty(output.Mentors)

	err = s.repo.SetAvailability(s.ctx, &SetAvailabilityInput{UserID: "missing", Available: true})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RedisRepositoryTestSuite) TestListAvailableMentors_ExcludesCaller() {
	s.createUser("user-1", "Grace", true)
	s.createUser("user-2", "Ada", true)
	s.createUser("user-3", "Linus", true)
	s.createUser("user-4", "Ken", false)

	output, err := s.repo.ListAvailableMentors(s.ctx, &ListAvailableMentorsInput{ExcludeUserID: "user-3"})
	s.Require().NoError(err)
	s.Require().Len(output.Mentors, 2)
	s.Equal("Ada", output.Mentors[0].Name)
	s.Equal("Grace", output.Mentors[1].Name)
}
