package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mroshb/lid_lottery/internal/lock"
	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret = "test_secret_key_minimum_32_chars"
	testTTL    = 7 * 24 * time.Hour
)

type fixedDecider struct {
	outcome models.Outcome
	calls   int32
}

func (d *fixedDecider) Decide(models.LidCode) (models.Outcome, error) {
	atomic.AddInt32(&d.calls, 1)
	return d.outcome, nil
}

func (d *fixedDecider) Calls() int {
	return int(atomic.LoadInt32(&d.calls))
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type failingSink struct{}

func (failingSink) Emit(context.Context, Event) error {
	return errors.New("sink unavailable")
}

type testEnv struct {
	db      *gorm.DB
	codes   *repositories.CodeRepository
	codec   *security.CouponCodec
	decider *fixedDecider
	sink    *recordingSink
	play    *PlayService
	redeem  *RedeemService

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T, outcome models.Outcome) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	codes := repositories.NewCodeRepository(db)

	codec, err := security.NewCouponCodec([]byte(testSecret))
	require.NoError(t, err)
	validator, err := security.NewCodeValidator(`^[0-9]{4}$`, []string{"2026", "1234"})
	require.NoError(t, err)

	env := &testEnv{
		db:      db,
		codes:   codes,
		codec:   codec,
		decider: &fixedDecider{outcome: outcome},
		sink:    &recordingSink{},
		now:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	events := MultiSink{
		NewAttemptSink(repositories.NewAttemptRepository(db)),
		env.sink,
	}
	locker := lock.NewKeyedMutex()

	env.play = NewPlayService(codes, validator, codec, env.decider, locker, events, testTTL)
	env.play.now = env.clock
	env.redeem = NewRedeemService(codes, codec, locker, events)
	env.redeem.now = env.clock
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) record(t *testing.T, code string) *models.LidCode {
	t.Helper()
	record, err := e.codes.FindByCode(code)
	require.NoError(t, err)
	return record
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}
