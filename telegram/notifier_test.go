package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/lid_lottery/internal/lock"
	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/mroshb/lid_lottery/internal/testutil"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	fail  bool
	block chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func TestNotifier_SendsInterestingEvents(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 42)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	events := []services.Event{
		{Kind: services.EventPlay, Result: "win", Code: "2026", At: at},
		{Kind: services.EventPlay, Result: "win", Code: "2026", At: at, Replayed: true},
		{Kind: services.EventPlay, Result: "lose", Code: "2026", At: at},
		{Kind: services.EventPlay, Result: "invalid", At: at},
		{Kind: services.EventRedeem, Result: "ok", Code: "2026", At: at},
		{Kind: services.EventRedeem, Result: "expired", Code: "2026", At: at},
	}
	for _, e := range events {
		if err := n.Emit(ctx, e); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
	}
	n.Close()

	texts := sender.Texts()
	if len(texts) != 2 {
		t.Fatalf("sent %d messages, want 2: %v", len(texts), texts)
	}
	if !strings.Contains(texts[0], "2026 won") {
		t.Errorf("first message = %q", texts[0])
	}
	if !strings.Contains(texts[1], "redeemed") || !strings.Contains(texts[1], "2026-01-01 12:00:00") {
		t.Errorf("second message = %q", texts[1])
	}
}

func TestNotifier_SendFailureIsNotFatal(t *testing.T) {
	sender := &fakeSender{fail: true}
	n := NewNotifier(sender, 42)

	if err := n.Emit(context.Background(), services.Event{Kind: services.EventPlay, Result: "win", Code: "2026"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	n.Close()

	if len(sender.Texts()) != 0 {
		t.Error("failed sends must not be recorded")
	}
}

func TestNotifier_QueueFull(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	n := NewNotifier(sender, 42)
	win := services.Event{Kind: services.EventPlay, Result: "win", Code: "2026"}

	var failed bool
	for i := 0; i < queueSize+2; i++ {
		if err := n.Emit(context.Background(), win); err != nil {
			failed = true
			break
		}
	}
	if !failed {
		t.Error("Emit() expected an error once the queue is full")
	}

	close(sender.block)
	n.Close()
}

func TestNotifier_EmitAfterClose(t *testing.T) {
	n := NewNotifier(&fakeSender{}, 42)
	n.Close()
	n.Close()

	err := n.Emit(context.Background(), services.Event{Kind: services.EventRedeem, Result: "ok"})
	if err == nil {
		t.Error("Emit() after Close expected error")
	}
}

type alwaysWin struct{}

func (alwaysWin) Decide(models.LidCode) (models.Outcome, error) {
	return models.OutcomeWin, nil
}

func TestNotifier_WinReplaysAreSilent(t *testing.T) {
	db := testutil.NewTestDB(t)
	codec, err := security.NewCouponCodec([]byte("test_secret_key_minimum_32_chars"))
	if err != nil {
		t.Fatalf("NewCouponCodec() error = %v", err)
	}
	validator, err := security.NewCodeValidator(`^[0-9]{4}$`, []string{"2026"})
	if err != nil {
		t.Fatalf("NewCodeValidator() error = %v", err)
	}

	sender := &fakeSender{}
	n := NewNotifier(sender, 42)
	play := services.NewPlayService(
		repositories.NewCodeRepository(db),
		validator,
		codec,
		alwaysWin{},
		lock.NewKeyedMutex(),
		n,
		24*time.Hour,
	)

	ctx := context.Background()
	var token string
	for i := 0; i < 3; i++ {
		result, err := play.Play(ctx, "2026")
		if err != nil {
			t.Fatalf("Play() #%d error = %v", i+1, err)
		}
		if result.Status != services.PlayStatusWin {
			t.Fatalf("Play() #%d status = %s, want win", i+1, result.Status)
		}
		if i > 0 && (!result.Replayed || result.Token != token) {
			t.Fatalf("Play() #%d = %+v, want replay of the first coupon", i+1, result)
		}
		token = result.Token
	}
	n.Close()

	texts := sender.Texts()
	if len(texts) != 1 {
		t.Fatalf("sent %d messages for one win and two replays, want 1: %v", len(texts), texts)
	}
	if !strings.Contains(texts[0], "2026 won") {
		t.Errorf("message = %q", texts[0])
	}
}
