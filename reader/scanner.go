package reader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vizflow/config"
	"vizflow/logger"
	"vizflow/models"
	"vizflow/table"
)

// feed identifies which input a file belongs to, selecting the parquet
// record layout and the CSV column mapping.
type feed int

const (
	feedTrades feed = iota
	feedAlphas
	feedUniv
)

// Scanner discovers the trading dates covered by the configured data
// directories, loads each date's trade, alpha and universe files and emits
// one DayBatch per date. The raw channel is closed once every date has been
// sent, so downstream components can drain and exit.
type Scanner struct {
	config  *config.Config
	rawChan chan<- models.DayBatch
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log

	tradeMapping config.Mapping
	alphaMapping config.Mapping

	// Metrics
	batchesLoaded int64
	rowsLoaded    int64
	errorsCount   int64
}

func NewScanner(cfg *config.Config, rawChan chan<- models.DayBatch) (*Scanner, error) {
	log := logger.GetLogger()

	tradeMapping, err := cfg.TradeMapping()
	if err != nil {
		return nil, err
	}
	alphaMapping, err := cfg.AlphaMapping()
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		config:       cfg,
		rawChan:      rawChan,
		wg:           &sync.WaitGroup{},
		log:          log,
		tradeMapping: tradeMapping,
		alphaMapping: alphaMapping,
	}

	log.WithComponent("scanner-reader").Info("scanner initialized")
	return s, nil
}

func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scanner already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	log := s.log.WithComponent("scanner-reader").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting scanner")

	dates, err := s.discoverDates()
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return fmt.Errorf("no dates with both trade and alpha data")
	}

	log.WithFields(logger.Fields{
		"dates":   len(dates),
		"first":   dates[0],
		"last":    dates[len(dates)-1],
		"workers": s.config.Reader.MaxWorkers,
	}).Info("discovered trading dates")

	jobs := make(chan string)
	for i := 0; i < s.config.Reader.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i, jobs)
	}

	go func() {
		defer close(jobs)
		for _, date := range dates {
			select {
			case jobs <- date:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		s.wg.Wait()
		close(s.rawChan)
		log.Info("all dates loaded, raw channel closed")
	}()

	go s.metricsReporter(ctx)

	log.Info("scanner started successfully")
	return nil
}

func (s *Scanner) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.WithComponent("scanner-reader").Info("stopping scanner")
	s.wg.Wait()
	s.log.WithComponent("scanner-reader").Info("scanner stopped")
}

// discoverDates resolves the dates to process: the configured list when one
// is given, otherwise every date both the trade and alpha directories cover.
func (s *Scanner) discoverDates() ([]string, error) {
	if len(s.config.Data.Dates) > 0 {
		return s.config.Data.Dates, nil
	}

	tradeDates, err := ListDates(s.config.Data.TradeDir, s.config.Data.TradePattern)
	if err != nil {
		return nil, fmt.Errorf("trade dir: %w", err)
	}
	alphaDates, err := ListDates(s.config.Data.AlphaDir, s.config.Data.AlphaPattern)
	if err != nil {
		return nil, fmt.Errorf("alpha dir: %w", err)
	}
	return IntersectDates(tradeDates, alphaDates), nil
}

func (s *Scanner) worker(workerID int, jobs <-chan string) {
	defer s.wg.Done()

	log := s.log.WithComponent("scanner-reader").WithFields(logger.Fields{
		"worker_id": workerID,
		"worker":    "scanner",
	})

	log.Info("starting scanner worker")

	for {
		select {
		case <-s.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case date, ok := <-jobs:
			if !ok {
				return
			}

			start := time.Now()
			batch, err := s.loadDate(date)
			duration := time.Since(start)

			if err != nil {
				s.mu.Lock()
				s.errorsCount++
				s.mu.Unlock()
				log.WithError(err).WithFields(logger.Fields{"date": date}).Error("failed to load day batch")
				continue
			}

			s.mu.Lock()
			s.batchesLoaded++
			s.rowsLoaded += int64(batch.RecordCount())
			s.mu.Unlock()

			logger.LogPerformanceEntry(log, "scanner-reader", "load_date", duration, logger.Fields{
				"worker_id":    workerID,
				"date":         date,
				"record_count": batch.RecordCount(),
			})

			select {
			case s.rawChan <- batch:
				logger.IncrementBatchRead(batch.RecordCount())
				logger.LogDataFlowEntry(log, "data_files", "raw_channel", batch.RecordCount(), "day_batch")
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// loadDate reads one date's input files into a DayBatch. The universe feed
// is optional; trade and alpha files are not.
func (s *Scanner) loadDate(date string) (models.DayBatch, error) {
	tradePath := filepath.Join(s.config.Data.TradeDir, ExpandPattern(s.config.Data.TradePattern, date))
	alphaPath := filepath.Join(s.config.Data.AlphaDir, ExpandPattern(s.config.Data.AlphaPattern, date))

	trades, err := s.loadTable(tradePath, feedTrades)
	if err != nil {
		return models.DayBatch{}, fmt.Errorf("date %s: %w", date, err)
	}
	alphas, err := s.loadTable(alphaPath, feedAlphas)
	if err != nil {
		return models.DayBatch{}, fmt.Errorf("date %s: %w", date, err)
	}

	var univ *table.Table
	if s.config.Data.UnivDir != "" {
		univPath := filepath.Join(s.config.Data.UnivDir, ExpandPattern(s.config.Data.UnivPattern, date))
		univ, err = s.loadTable(univPath, feedUniv)
		if err != nil {
			return models.DayBatch{}, fmt.Errorf("date %s: %w", date, err)
		}
	}

	return models.DayBatch{
		BatchID:  uuid.New().String(),
		Date:     date,
		Trades:   trades,
		Alphas:   alphas,
		Univ:     univ,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func (s *Scanner) loadTable(path string, f feed) (*table.Table, error) {
	switch DetectFormat(path) {
	case FormatParquet:
		switch f {
		case feedTrades:
			return ReadTradesParquet(path)
		case feedAlphas:
			return ReadAlphasParquet(path)
		default:
			return ReadUnivParquet(path)
		}
	case FormatCSV:
		switch f {
		case feedTrades:
			return ReadCSV(path, s.tradeMapping, s.config.Schema.TradeCasts)
		case feedAlphas:
			return ReadCSV(path, s.alphaMapping, s.config.Schema.AlphaCasts)
		default:
			return ReadCSV(path, config.NewMapping(nil, nil), nil)
		}
	default:
		return nil, fmt.Errorf("unsupported file format: %s", path)
	}
}

func (s *Scanner) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reportMetrics()
		}
	}
}

func (s *Scanner) reportMetrics() {
	s.mu.RLock()
	batchesLoaded := s.batchesLoaded
	rowsLoaded := s.rowsLoaded
	errorsCount := s.errorsCount
	s.mu.RUnlock()

	log := s.log.WithComponent("scanner-reader")
	s.log.LogMetric("scanner-reader", "batches_loaded", batchesLoaded, "counter", logger.Fields{})
	s.log.LogMetric("scanner-reader", "rows_loaded", rowsLoaded, "counter", logger.Fields{})
	s.log.LogMetric("scanner-reader", "errors_count", errorsCount, "counter", logger.Fields{})

	log.WithFields(logger.Fields{
		"batches_loaded": batchesLoaded,
		"rows_loaded":    rowsLoaded,
		"errors_count":   errorsCount,
	}).Info("scanner metrics")
}
