package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vizflow/config"
	"vizflow/logger"
	"vizflow/market"
	"vizflow/models"
	"vizflow/table"
)

// Timestamp columns decoded before matching.
const (
	ColAlphaTs  = "alpha_ts"
	ColTicktime = "ticktime"
)

// Markout consumes day batches, decorates every trade with forward returns
// and markout columns, reduces each day to its aggregate summary and emits
// the result downstream.
type Markout struct {
	config        *config.Config
	rawChan       <-chan models.DayBatch
	processedChan chan<- models.ResultBatch
	market        market.Market
	ctx           context.Context
	wg            *sync.WaitGroup
	mu            sync.RWMutex
	running       bool
	log           *logger.Log

	// Metrics
	batchesProcessed int64
	rowsProcessed    int64
	errorsCount      int64
}

func NewMarkout(cfg *config.Config, rawChan <-chan models.DayBatch, processedChan chan<- models.ResultBatch) *Markout {
	log := logger.GetLogger()

	m := &Markout{
		config:        cfg,
		rawChan:       rawChan,
		processedChan: processedChan,
		wg:            &sync.WaitGroup{},
		log:           log,
	}

	log.WithComponent("markout-processor").Info("markout processor initialized")
	return m
}

func (m *Markout) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("markout processor already running")
	}
	m.running = true
	m.ctx = ctx
	m.mu.Unlock()

	mkt, err := market.Get(m.config.Market)
	if err != nil {
		return err
	}
	m.market = mkt

	if err := ValidateHorizons(m.config.Analysis.Horizons); err != nil {
		return err
	}

	log := m.log.WithComponent("markout-processor").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting markout processor")

	for i := 0; i < m.config.Processor.MaxWorkers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	go m.metricsReporter(ctx)

	log.WithFields(logger.Fields{
		"market":   m.config.Market,
		"horizons": m.config.Analysis.Horizons,
		"workers":  m.config.Processor.MaxWorkers,
	}).Info("markout processor started successfully")
	return nil
}

func (m *Markout) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.log.WithComponent("markout-processor").Info("stopping markout processor")
	m.wg.Wait()
	m.log.WithComponent("markout-processor").Info("markout processor stopped")
}

// Wait blocks until every queued batch has been processed. The raw channel
// must be closed first.
func (m *Markout) Wait() {
	m.wg.Wait()
}

func (m *Markout) worker(workerID int) {
	defer m.wg.Done()

	log := m.log.WithComponent("markout-processor").WithFields(logger.Fields{
		"worker_id": workerID,
		"worker":    "markout",
	})

	log.Info("starting markout worker")

	for {
		select {
		case <-m.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case batch, ok := <-m.rawChan:
			if !ok {
				log.Info("raw channel closed, worker stopping")
				return
			}

			start := time.Now()
			result, err := m.ProcessBatch(batch)
			duration := time.Since(start)

			if err != nil {
				m.mu.Lock()
				m.errorsCount++
				m.mu.Unlock()
				log.WithError(err).WithFields(logger.Fields{
					"batch_id": batch.BatchID,
					"date":     batch.Date,
				}).Error("failed to process day batch")
				continue
			}

			m.mu.Lock()
			m.batchesProcessed++
			m.rowsProcessed += int64(result.RecordCount)
			m.mu.Unlock()

			logger.LogPerformanceEntry(log, "markout-processor", "process_batch", duration, logger.Fields{
				"worker_id":    workerID,
				"date":         batch.Date,
				"record_count": result.RecordCount,
			})

			select {
			case m.processedChan <- result:
				logger.IncrementBatchProcessed(result.RecordCount)
				logger.LogDataFlowEntry(log, "raw_channel", "processed_channel", result.RecordCount, "result_batch")
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// ProcessBatch runs the full markout computation for one trading date. The
// trade table keeps every input row and column and gains mid, notional,
// forward mid and signed return columns; the aggregate table carries the
// day's notional-weighted summary.
func (m *Markout) ProcessBatch(batch models.DayBatch) (models.ResultBatch, error) {
	horizons := m.config.Analysis.Horizons

	trades, err := ParseTime(batch.Trades, ColAlphaTs, m.market)
	if err != nil {
		return models.ResultBatch{}, fmt.Errorf("normalize trade times: %w", err)
	}
	alphas, err := ParseTime(batch.Alphas, ColTicktime, m.market)
	if err != nil {
		return models.ResultBatch{}, fmt.Errorf("normalize alpha times: %w", err)
	}

	if _, ok := trades.Col(ColMid); !ok {
		if trades, err = WithMid(trades); err != nil {
			return models.ResultBatch{}, fmt.Errorf("trade mid: %w", err)
		}
	}
	if _, ok := alphas.Col(ColMid); !ok {
		if alphas, err = WithMid(alphas); err != nil {
			return models.ResultBatch{}, fmt.Errorf("alpha mid: %w", err)
		}
	}

	if trades, err = WithNotional(trades); err != nil {
		return models.ResultBatch{}, err
	}

	if cutoff := m.config.Analysis.TimeCutoff; cutoff > 0 {
		if trades, err = FilterByCutoff(trades, "elapsed_"+ColAlphaTs, cutoff); err != nil {
			return models.ResultBatch{}, err
		}
	}

	if trades, err = ForwardReturn(trades, alphas, horizons, m.config.Processor.MaxWorkers); err != nil {
		return models.ResultBatch{}, err
	}

	if batch.Univ != nil {
		if trades, err = MarkToClose(trades, batch.Univ); err != nil {
			return models.ResultBatch{}, err
		}
	}

	yCols := make([]string, 0, len(horizons)+1)
	for _, h := range horizons {
		yCols = append(yCols, ReturnColumn(h))
	}
	if _, ok := trades.Col(ColCloseRet); ok {
		yCols = append(yCols, ColCloseRet)
	}
	if trades, err = SignBySide(trades, yCols); err != nil {
		return models.ResultBatch{}, err
	}

	if len(m.config.Analysis.Binwidths) > 0 {
		if trades, err = table.Bin(trades, m.config.Analysis.Binwidths); err != nil {
			return models.ResultBatch{}, err
		}
	}

	aggregate, err := DailyMarkout(trades, horizons, m.config.Analysis.GroupBy)
	if err != nil {
		return models.ResultBatch{}, err
	}

	return models.ResultBatch{
		BatchID:     batch.BatchID,
		Date:        batch.Date,
		Trades:      trades,
		Aggregate:   aggregate,
		RecordCount: trades.NumRows(),
		ProcessedAt: time.Now().UTC(),
	}, nil
}

func (m *Markout) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportMetrics()
		}
	}
}

func (m *Markout) reportMetrics() {
	m.mu.RLock()
	batchesProcessed := m.batchesProcessed
	rowsProcessed := m.rowsProcessed
	errorsCount := m.errorsCount
	m.mu.RUnlock()

	errorRate := float64(0)
	if batchesProcessed+errorsCount > 0 {
		errorRate = float64(errorsCount) / float64(batchesProcessed+errorsCount)
	}

	log := m.log.WithComponent("markout-processor")
	m.log.LogMetric("markout-processor", "batches_processed", batchesProcessed, "counter", logger.Fields{})
	m.log.LogMetric("markout-processor", "rows_processed", rowsProcessed, "counter", logger.Fields{})
	m.log.LogMetric("markout-processor", "errors_count", errorsCount, "counter", logger.Fields{})
	m.log.LogMetric("markout-processor", "error_rate", errorRate, "gauge", logger.Fields{})

	log.WithFields(logger.Fields{
		"batches_processed": batchesProcessed,
		"rows_processed":    rowsProcessed,
		"errors_count":      errorsCount,
		"error_rate":        errorRate,
		"raw_channel_len":   len(m.rawChan),
		"raw_channel_cap":   cap(m.rawChan),
	}).Info("markout processor metrics")
}
