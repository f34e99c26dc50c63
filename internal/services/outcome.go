package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/mroshb/lid_lottery/internal/models"
)

// OutcomeDecider draws the outcome of a code whose outcome is still pending.
type OutcomeDecider interface {
	Decide(record models.LidCode) (models.Outcome, error)
}

// OutcomeEngine wins one draw in odds. Only a never-played code can win;
// any other pending record is settled as a loss.
type OutcomeEngine struct {
	odds *big.Int
	rand io.Reader
}

func NewOutcomeEngine(odds int64) (*OutcomeEngine, error) {
	return NewOutcomeEngineWithReader(odds, rand.Reader)
}

// NewOutcomeEngineWithReader draws from r instead of the system CSPRNG.
func NewOutcomeEngineWithReader(odds int64, r io.Reader) (*OutcomeEngine, error) {
	if odds < 1 {
		return nil, fmt.Errorf("win odds must be at least 1, got %d", odds)
	}
	return &OutcomeEngine{odds: big.NewInt(odds), rand: r}, nil
}

func (e *OutcomeEngine) Decide(record models.LidCode) (models.Outcome, error) {
	if record.Status != models.CodeStatusNew {
		return models.OutcomeLose, nil
	}

	n, err := rand.Int(e.rand, e.odds)
	if err != nil {
		return "", fmt.Errorf("draw outcome: %w", err)
	}
	if n.Sign() == 0 {
		return models.OutcomeWin, nil
	}
	return models.OutcomeLose, nil
}
