package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"monitor-precos/internal/database"
	"monitor-precos/internal/models"
	"monitor-precos/internal/scraper"

	"github.com/shopspring/decimal"
)

// DefaultRequestDelay é a pausa entre produtos de um lote
const DefaultRequestDelay = 2 * time.Second

// Status é o estado de um produto durante a atualização
type Status string

const (
	StatusPending    Status = "pending"
	StatusFetching   Status = "fetching"
	StatusExtracting Status = "extracting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Reason explica por que uma atualização falhou
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonFetch   Reason = "fetch"
	ReasonNoPrice Reason = "no-price"
	ReasonStore   Reason = "store"

	// ReasonCanceled marca produtos não processados porque o ciclo foi cancelado
	ReasonCanceled Reason = "canceled"
)

// UpdateOutcome é o resultado da atualização de um produto
type UpdateOutcome struct {
	Product    models.Product
	Status     Status
	Reason     Reason
	Price      decimal.Decimal
	Rule       string
	Alert      bool
	Evaluation *models.AlertEvaluation
	// Previous é o último preço conhecido antes desta atualização
	Previous decimal.NullDecimal
	Err      error
}

// Succeeded indica se o preço foi obtido e registrado
func (o UpdateOutcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Notifier recebe os alertas de preço alvo
type Notifier interface {
	NotifyAlert(ctx context.Context, outcome UpdateOutcome) error
}

// Option configura o monitor
type Option func(*Monitor)

// WithDelay define a pausa entre produtos de um lote
func WithDelay(d time.Duration) Option {
	return func(m *Monitor) { m.delay = d }
}

// WithNotifier define quem recebe os alertas
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithLogger define o logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithClock define a fonte de horário das observações
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor orquestra a atualização de preços
type Monitor struct {
	store    database.Store
	scraper  *scraper.Scraper
	notifier Notifier
	logger   *slog.Logger
	delay    time.Duration
	now      func() time.Time
}

// New cria uma nova instância do monitor
func New(store database.Store, s *scraper.Scraper, opts ...Option) *Monitor {
	m := &Monitor{
		store:   store,
		scraper: s,
		logger:  slog.Default(),
		delay:   DefaultRequestDelay,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RefreshOne busca, extrai e registra o preço de um produto.
// O histórico só é alterado quando busca e extração funcionam.
func (m *Monitor) RefreshOne(ctx context.Context, product models.Product) UpdateOutcome {
	out := UpdateOutcome{Product: product, Status: StatusPending}
	log := m.logger.With("product_id", product.ID, "url", product.URL)

	previous, err := m.store.LatestPrice(ctx, product.ID)
	if err != nil {
		log.Warn("erro ao buscar último preço", "err", err)
	}
	out.Previous = previous

	m.transition(log, &out, StatusFetching)
	markup, err := m.scraper.Fetch(ctx, product.URL)
	if err != nil {
		log.Warn("erro ao buscar página", "err", err)
		return m.fail(log, out, ReasonFetch, err)
	}

	m.transition(log, &out, StatusExtracting)
	result, err := m.scraper.Extract(markup, product.URL)
	if err != nil {
		log.Warn("preço não encontrado", "err", err)
		return m.fail(log, out, ReasonNoPrice, err)
	}
	out.Price = result.Price
	out.Rule = result.Rule

	if err := m.store.AppendObservation(ctx, product.ID, result.Price, m.now()); err != nil {
		log.Error("erro ao registrar preço", "err", err)
		return m.fail(log, out, ReasonStore, fmt.Errorf("erro ao registrar preço: %w", err))
	}

	if eval, ok := models.EvaluateAlert(product, result.Price); ok {
		out.Alert = true
		out.Evaluation = &eval
	}

	m.transition(log, &out, StatusSucceeded)
	log.Info("preço atualizado", "price", result.Price.String(), "rule", result.Rule, "alert", out.Alert)
	return out
}

// RefreshAll atualiza os produtos um de cada vez, com uma pausa entre eles.
// Sempre devolve um resultado por produto; a falha de um não interrompe os outros.
func (m *Monitor) RefreshAll(ctx context.Context, products []models.Product) []UpdateOutcome {
	outcomes := make([]UpdateOutcome, 0, len(products))

	for i, product := range products {
		if i > 0 && m.delay > 0 {
			if err := sleep(ctx, m.delay); err != nil {
				// Cancelado: os restantes ficam registrados como falha
				outcomes = append(outcomes, m.canceled(products[i:], err)...)
				return outcomes
			}
		}
		outcomes = append(outcomes, m.RefreshOne(ctx, product))
	}
	return outcomes
}

// Report resume um ciclo de atualização
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  []UpdateOutcome
	Succeeded int
	Failed    int
	Alerts    []models.AlertEvaluation
}

// RunCycle atualiza todos os produtos ativos e envia as notificações
func (m *Monitor) RunCycle(ctx context.Context) (Report, error) {
	report := Report{StartedAt: m.now()}

	products, err := m.store.ActiveProducts(ctx)
	if err != nil {
		return report, fmt.Errorf("erro ao buscar produtos: %w", err)
	}

	m.logger.Info("iniciando atualização de preços", "products", len(products))
	report.Outcomes = m.RefreshAll(ctx, products)

	for _, out := range report.Outcomes {
		if out.Succeeded() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		if m.shouldNotify(out) {
			if err := m.notifier.NotifyAlert(ctx, out); err != nil {
				m.logger.Error("erro ao enviar notificação", "product_id", out.Product.ID, "err", err)
			} else {
				m.logger.Info("notificação enviada", "product_id", out.Product.ID)
			}
		}
	}

	alerts, err := m.store.Alerts(ctx)
	if err != nil {
		m.logger.Warn("erro ao buscar alertas", "err", err)
	}
	report.Alerts = alerts
	report.Duration = m.now().Sub(report.StartedAt)

	m.logger.Info("atualização concluída",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"alerts", len(report.Alerts),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// shouldNotify evita repetir o alerta: só notifica na primeira vez que o
// produto entra no alvo ou quando o preço cai de novo
func (m *Monitor) shouldNotify(out UpdateOutcome) bool {
	if m.notifier == nil || !out.Alert {
		return false
	}
	prev := out.Previous
	if !prev.Valid || prev.Decimal.GreaterThan(out.Product.TargetPrice.Decimal) {
		return true
	}
	return out.Price.LessThan(prev.Decimal)
}

func (m *Monitor) transition(log *slog.Logger, out *UpdateOutcome, to Status) {
	log.Debug("mudança de estado", "from", out.Status, "to", to)
	out.Status = to
}

func (m *Monitor) fail(log *slog.Logger, out UpdateOutcome, reason Reason, err error) UpdateOutcome {
	m.transition(log, &out, StatusFailed)
	out.Reason = reason
	out.Err = err
	return out
}

func (m *Monitor) canceled(products []models.Product, err error) []UpdateOutcome {
	outcomes := make([]UpdateOutcome, 0, len(products))
	for _, p := range products {
		outcomes = append(outcomes, UpdateOutcome{
			Product: p,
			Status:  StatusFailed,
			Reason:  ReasonCanceled,
			Err:     err,
		})
	}
	return outcomes
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Describe devolve uma mensagem legível para a falha
func Describe(out UpdateOutcome) string {
	switch out.Reason {
	case ReasonFetch:
		var fe *scraper.FetchError
		if errors.As(out.Err, &fe) && fe.Reason == scraper.ReasonStatus {
			return fmt.Sprintf("a loja respondeu com status %d", fe.StatusCode)
		}
		return "não foi possível acessar a página"
	case ReasonNoPrice:
		return "preço não encontrado na página"
	case ReasonStore:
		return "erro ao salvar o preço"
	case ReasonCanceled:
		return "atualização cancelada"
	}
	return ""
}
