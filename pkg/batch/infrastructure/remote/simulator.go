package remote

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// Simulator answers portions locally with configurable latency and outcome rates.
// It implements both port.CallChannel and port.SessionRegistry.
type Simulator struct {
	cfg       config.SimulateConfig
	contracts atomic.Int64
	released  atomic.Int64
	random    func() float64
}

// NewSimulator creates a Simulator.
func NewSimulator(cfg *config.ConnectionConfig) *Simulator {
	return &Simulator{cfg: cfg.Simulate, random: rand.Float64}
}

// NewSimulatorWithRandom creates a Simulator drawing from random, for deterministic tests.
func NewSimulatorWithRandom(cfg config.SimulateConfig, random func() float64) *Simulator {
	return &Simulator{cfg: cfg, random: random}
}

// Call waits for the configured latency and answers every payment.
func (s *Simulator) Call(ctx context.Context, batch port.Batch, procedure string) ([]model.PaymentOutcome, time.Duration, error) {
	start := time.Now()
	if s.cfg.Latency > 0 {
		timer := time.NewTimer(s.cfg.Latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, time.Since(start), exception.NewBatchError(moduleName, exception.KindPortion, "simulated call interrupted", ctx.Err())
		}
	}
	if s.random() < s.cfg.CallErrorRate {
		return nil, time.Since(start), exception.NewBatchErrorf(moduleName, exception.KindPortion, "simulated failure of procedure %s", procedure, errors.New("simulated call error"))
	}

	outcomes := make([]model.PaymentOutcome, len(batch.Payments))
	for i, p := range batch.Payments {
		outcomes[i] = model.PaymentOutcome{DocID: p.DocID, State: model.PaymentStateOther}
		r := s.random()
		switch {
		case r < s.cfg.PendingRate:
			outcomes[i].State = model.PaymentStatePending
		case r < s.cfg.PendingRate+s.cfg.FailureRate:
			outcomes[i].ErrorCode = 1
		}
	}
	return outcomes, time.Since(start), nil
}

// Register hands out sequential contract ids.
func (s *Simulator) Register(ctx context.Context) (string, error) {
	id := s.contracts.Add(1)
	return "SIM-" + strconv.FormatInt(id, 10), nil
}

// Release counts released contracts.
func (s *Simulator) Release(ctx context.Context, contractID string) {
	s.released.Add(1)
	logger.Debugf("Simulator: contract %s released.", contractID)
}

// Released returns how many contracts were released.
func (s *Simulator) Released() int64 {
	return s.released.Load()
}

var (
	_ port.CallChannel     = (*Simulator)(nil)
	_ port.SessionRegistry = (*Simulator)(nil)
)
