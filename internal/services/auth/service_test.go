package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"pgregory.net/rapid"

	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage/memory"
	"github.com/mcoot/stockgame/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	var err error
	s.service, err = New(s.storage, s.clock, testutil.NopLogger(), Config{
		Secret:   testSecret,
		TTL:      time.Hour,
		HashCost: bcrypt.MinCost,
	})
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *ServiceSuite) register(id model.PlayerID, credential string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{
		ID:             id,
		CredentialHash: string(hash),
		Balance:        decimal.NewFromInt(50000),
	}))
}

// Construction

func (s *ServiceSuite) TestNewRejectsShortSecret() {
	_, err := New(s.storage, s.clock, nil, Config{Secret: []byte("short")})
	s.Error(err)
}

func (s *ServiceSuite) TestNewCopiesSecret() {
	secret := append([]byte(nil), testSecret...)
	svc, err := New(s.storage, s.clock, nil, Config{Secret: secret})
	s.Require().NoError(err)
	session, err := svc.Issue("alice")
	s.Require().NoError(err)

	secret[0] ^= 0xff
	_, err = svc.Validate(session.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestDefaultTTL() {
	svc, err := New(s.storage, s.clock, nil, Config{Secret: testSecret})
	s.Require().NoError(err)
	s.Equal(time.Hour, svc.TTL())
}

// Issue and Validate

func (s *ServiceSuite) TestIssueThenValidate() {
	session, err := s.service.Issue("alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), session.PlayerID)
	s.Equal(s.clock.Now(), session.IssuedAt)
	s.Equal(s.clock.Now().Add(time.Hour), session.ExpiresAt)

	playerID, err := s.service.Validate(session.Token)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), playerID)

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.True(session.ExpiresAt.Equal(validated.ExpiresAt))
}

func (s *ServiceSuite) TestTokenDoesNotContainCredential() {
	s.register("alice", "hunter2")
	session, err := s.service.Login(s.ctx, "alice", "hunter2")
	s.Require().NoError(err)
	s.NotContains(session.Token, "hunter2")
}

func (s *ServiceSuite) TestValidateEmptyToken() {
	_, err := s.service.Validate("")
	s.ErrorIs(err, model.ErrTokenMissing)
}

func (s *ServiceSuite) TestValidateGarbage() {
	for _, token := range []string{"x", "v1", "v1..", "v1.abc.def", "v2.e30.AAAA", "a.b.c.d"} {
		_, err := s.service.Validate(token)
		s.ErrorIs(err, model.ErrTokenInvalid, "token %q", token)
	}
}

func (s *ServiceSuite) TestValidJustBeforeExpiry() {
	session, err := s.service.Issue("alice")
	s.Require().NoError(err)

	s.clock.Advance(time.Hour - time.Nanosecond)
	_, err = s.service.Validate(session.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestExpiredAtExactlyTTL() {
	session, err := s.service.Issue("alice")
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	_, err = s.service.Validate(session.Token)
	s.ErrorIs(err, model.ErrTokenExpired)
}

func (s *ServiceSuite) TestTokenFromOtherKeyIsInvalid() {
	other, err := New(s.storage, s.clock, nil, Config{Secret: []byte(strings.Repeat("k", 32))})
	s.Require().NoError(err)
	session, err := other.Issue("alice")
	s.Require().NoError(err)

	_, err = s.service.Validate(session.Token)
	s.ErrorIs(err, model.ErrTokenInvalid)
}

func (s *ServiceSuite) TestSwappedPayloadIsInvalid() {
	alice, err := s.service.Issue("alice")
	s.Require().NoError(err)
	bob, err := s.service.Issue("bob")
	s.Require().NoError(err)

	a := strings.Split(alice.Token, ".")
	b := strings.Split(bob.Token, ".")
	forged := strings.Join([]string{a[0], b[1], a[2]}, ".")

	_, err = s.service.Validate(forged)
	s.ErrorIs(err, model.ErrTokenInvalid)
}

// Login

func (s *ServiceSuite) TestLoginSucceeds() {
	s.register("alice", "hunter2")

	session, err := s.service.Login(s.ctx, "alice", "hunter2")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), session.PlayerID)

	playerID, err := s.service.Validate(session.Token)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), playerID)
}

func (s *ServiceSuite) TestLoginWrongCredential() {
	s.register("alice", "hunter2")

	_, err := s.service.Login(s.ctx, "alice", "hunter3")
	s.ErrorIs(err, model.ErrAuthenticationFailed)
}

func (s *ServiceSuite) TestLoginUnknownPlayerLooksLikeWrongCredential() {
	_, err := s.service.Login(s.ctx, "nobody", "hunter2")
	s.ErrorIs(err, model.ErrAuthenticationFailed)
	s.NotErrorIs(err, model.ErrPlayerNotFound)
}

// Properties

func TestBitFlipIsAlwaysInvalid(t *testing.T) {
	svc, err := New(memory.New(), mocks.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), nil, Config{Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}

	rapid.Check(t, func(t *rapid.T) {
		playerID := model.PlayerID(rapid.StringMatching(`[a-zA-Z0-9_-]{1,32}`).Draw(t, "playerID"))
		session, err := svc.Issue(playerID)
		if err != nil {
			t.Fatal(err)
		}

		raw := []byte(session.Token)
		i := rapid.IntRange(0, len(raw)-1).Draw(t, "byte")
		bit := rapid.IntRange(0, 7).Draw(t, "bit")
		raw[i] ^= 1 << bit

		got, err := svc.Validate(string(raw))
		if err != model.ErrTokenInvalid {
			t.Fatalf("flipped bit %d of byte %d: got (%q, %v), want ErrTokenInvalid", bit, i, got, err)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc, err := New(memory.New(), clk, nil, Config{Secret: testSecret, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	rapid.Check(t, func(t *rapid.T) {
		playerID := model.PlayerID(rapid.StringN(1, 64, -1).Draw(t, "playerID"))
		session, err := svc.Issue(playerID)
		if err != nil {
			t.Fatal(err)
		}
		got, err := svc.Validate(session.Token)
		if err != nil || got != playerID {
			t.Fatalf("validate = (%q, %v), want %q", got, err, playerID)
		}
	})
}
