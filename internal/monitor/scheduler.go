package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval é o intervalo padrão entre ciclos
const DefaultInterval = 6 * time.Hour

// Cycle é executado a cada disparo do agendador
type Cycle func(ctx context.Context)

// Scheduler dispara ciclos de atualização em intervalo fixo
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	cycle    Cycle
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// running é mantido durante um ciclo; disparos que chegam nesse meio são ignorados
	running sync.Mutex
}

// NewScheduler cria o agendador
func NewScheduler(interval time.Duration, cycle Cycle, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		interval: interval,
		cycle:    cycle,
		logger:   logger,
	}
}

// ForMonitor cria um agendador que roda RunCycle do monitor
func ForMonitor(m *Monitor, interval time.Duration) *Scheduler {
	return NewScheduler(interval, func(ctx context.Context) {
		if _, err := m.RunCycle(ctx); err != nil {
			m.logger.Error("erro no ciclo de atualização", "err", err)
		}
	}, m.logger)
}

// Start agenda os ciclos e roda um imediatamente
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		s.cancel()
		return fmt.Errorf("erro ao agendar atualização: %w", err)
	}

	s.logger.Info("monitor iniciado", "interval", s.interval)

	// Verificar imediatamente na primeira execução
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runExclusive()
	}()

	s.cron.Start()
	return nil
}

func (s *Scheduler) run() {
	s.wg.Add(1)
	defer s.wg.Done()
	s.runExclusive()
}

// runExclusive garante que um ciclo lento nunca roda em paralelo com o próximo
func (s *Scheduler) runExclusive() {
	if !s.running.TryLock() {
		s.logger.Warn("ciclo anterior ainda em andamento, disparo ignorado")
		return
	}
	defer s.running.Unlock()
	s.cycle(s.ctx)
}

// Stop cancela o ciclo em andamento e espera ele terminar
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	stopped := s.cron.Stop()
	if cancel != nil {
		cancel()
	}
	<-stopped.Done()
	s.wg.Wait()
}
