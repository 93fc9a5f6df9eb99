package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playerinfo-proxy/internal/dependencies/mocks"
	"github.com/mcoot/playerinfo-proxy/internal/dependencies/random"
	"github.com/mcoot/playerinfo-proxy/internal/metrics"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = New(s.clock, random.New(), testutil.NopLogger(), metrics.New(), Config{
		Timeout:       30 * time.Minute,
		SweepInterval: time.Minute,
	})
}

// Create tests

func (s *ServiceSuite) TestCreateMintsToken() {
	sess, err := s.service.Create("admin", model.PermissionAdmin)
	s.Require().NoError(err)

	s.Len(sess.Token, TokenLength)
	s.Equal("admin", sess.Username)
	s.Equal(model.PermissionAdmin, sess.Permission)
	s.Equal(1, s.service.Count())
}

func (s *ServiceSuite) TestCreateTokensAreUnique() {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess, err := s.service.Create("admin", model.PermissionAdmin)
		s.Require().NoError(err)
		s.False(seen[sess.Token])
		seen[sess.Token] = true
	}
}

func (s *ServiceSuite) TestCreateRetriesOnCollision() {
	svc := New(s.clock, s.random, testutil.NopLogger(), metrics.New(), DefaultConfig())
	first := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	second := "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	s.random.QueueTokens(first, first, second)

	a, err := svc.Create("admin", model.PermissionAdmin)
	s.Require().NoError(err)
	b, err := svc.Create("viewer", model.PermissionView)
	s.Require().NoError(err)

	s.Equal(first, a.Token)
	s.Equal(second, b.Token)
	s.Equal(2, svc.Count())
}

func (s *ServiceSuite) TestCreateWithSequentialTokens() {
	svc := New(s.clock, s.random, testutil.NopLogger(), metrics.New(), DefaultConfig())

	a, err := svc.Create("admin", model.PermissionAdmin)
	s.Require().NoError(err)
	b, err := svc.Create("admin", model.PermissionAdmin)
	s.Require().NoError(err)

	s.Len(a.Token, TokenLength)
	s.NotEqual(a.Token, b.Token)
	s.Equal(2, s.random.Issued())
}

// Validate tests

func (s *ServiceSuite) TestValidateUnknownToken() {
	_, ok := s.service.Validate("nope")
	s.False(ok)
	s.False(s.service.IsValid(""))
}

func (s *ServiceSuite) TestSlidingExpiry() {
	sess, _ := s.service.Create("admin", model.PermissionAdmin)

	// Each access within the timeout pushes expiry forward
	for i := 0; i < 3; i++ {
		s.clock.Advance(29 * time.Minute)
		s.True(s.service.IsValid(sess.Token))
	}

	s.clock.Advance(30 * time.Minute)
	s.False(s.service.IsValid(sess.Token))
	s.Zero(s.service.Count())
}

func (s *ServiceSuite) TestExpiryBoundaryIsInclusive() {
	sess, _ := s.service.Create("admin", model.PermissionAdmin)

	s.clock.Advance(30*time.Minute - time.Millisecond)
	s.True(s.service.IsValid(sess.Token))

	s.clock.Advance(30 * time.Minute)
	s.False(s.service.IsValid(sess.Token))
}

func (s *ServiceSuite) TestValidateRefreshesLastAccess() {
	sess, _ := s.service.Create("admin", model.PermissionAdmin)
	s.clock.Advance(10 * time.Minute)

	got, ok := s.service.Validate(sess.Token)
	s.Require().True(ok)
	s.Equal(s.clock.Now(), got.LastAccess)
	s.Equal(sess.CreatedAt, got.CreatedAt)
}

func (s *ServiceSuite) TestGetReturnsError() {
	_, err := s.service.Get("missing")
	s.ErrorIs(err, ErrInvalidSession)
}

// Remove tests

func (s *ServiceSuite) TestRemove() {
	sess, _ := s.service.Create("admin", model.PermissionAdmin)

	s.service.Remove(sess.Token)

	s.False(s.service.IsValid(sess.Token))
	s.service.Remove(sess.Token)
}

// Sweep tests

func (s *ServiceSuite) TestSweepEvictsOnlyExpired() {
	old, _ := s.service.Create("admin", model.PermissionAdmin)
	s.clock.Advance(20 * time.Minute)
	fresh, _ := s.service.Create("viewer", model.PermissionView)
	s.clock.Advance(15 * time.Minute)

	removed := s.service.Sweep()

	s.Equal(1, removed)
	s.False(s.service.IsValid(old.Token))
	s.True(s.service.IsValid(fresh.Token))
}

func (s *ServiceSuite) TestSetTimeoutAppliesToExistingSessions() {
	sess, _ := s.service.Create("admin", model.PermissionAdmin)
	s.clock.Advance(10 * time.Minute)

	s.service.SetTimeout(5 * time.Minute)

	s.Equal(5*time.Minute, s.service.Timeout())
	s.False(s.service.IsValid(sess.Token))
}

func (s *ServiceSuite) TestSetTimeoutIgnoresNonPositive() {
	s.service.SetTimeout(0)
	s.Equal(30*time.Minute, s.service.Timeout())
}

func (s *ServiceSuite) TestRunSweepsUntilCancelled() {
	svc := New(s.clock, random.New(), testutil.NopLogger(), metrics.New(), Config{
		Timeout:       time.Minute,
		SweepInterval: 10 * time.Millisecond,
	})
	_, _ = svc.Create("admin", model.PermissionAdmin)
	s.clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	s.Eventually(func() bool { return svc.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("Run did not stop after cancellation")
	}
}

func (s *ServiceSuite) TestSetSweepIntervalReschedulesRunningLoop() {
	svc := New(s.clock, random.New(), testutil.NopLogger(), metrics.New(), Config{
		Timeout:       time.Minute,
		SweepInterval: time.Hour,
	})
	_, _ = svc.Create("admin", model.PermissionAdmin)
	s.clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	svc.SetSweepInterval(10 * time.Millisecond)

	s.Equal(10*time.Millisecond, svc.SweepInterval())
	s.Eventually(func() bool { return svc.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestSetSweepIntervalIgnoresNonPositive() {
	before := s.service.SweepInterval()
	s.service.SetSweepInterval(-time.Second)
	s.Equal(before, s.service.SweepInterval())
}
