package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "vizflow/config"
	"vizflow/logger"
	"vizflow/models"
	"vizflow/table"
)

// ResultWriter lands processed day batches on disk: one replay file with
// every decorated trade and one aggregate file with the day's summary, in
// each enabled output format. Parquet output is optionally mirrored to S3.
type ResultWriter struct {
	config        *appconfig.Config
	processedChan <-chan models.ResultBatch
	s3Client      *s3.Client
	ctx           context.Context
	wg            *sync.WaitGroup
	mu            sync.RWMutex
	running       bool
	log           *logger.Log

	// Metrics
	batchesWritten int64
	rowsWritten    int64
	errorsCount    int64
}

func NewResultWriter(cfg *appconfig.Config, processedChan <-chan models.ResultBatch) (*ResultWriter, error) {
	log := logger.GetLogger()

	w := &ResultWriter{
		config:        cfg,
		processedChan: processedChan,
		wg:            &sync.WaitGroup{},
		log:           log,
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(context.Background(), cfg)
		if err != nil {
			log.WithComponent("result-writer").WithError(err).Warn("failed to initialize S3 client")
			return nil, err
		}
		w.s3Client = client
		log.WithComponent("result-writer").WithFields(logger.Fields{
			"bucket":     cfg.Storage.S3.Bucket,
			"region":     cfg.Storage.S3.Region,
			"endpoint":   cfg.Storage.S3.Endpoint,
			"path_style": cfg.Storage.S3.PathStyle,
		}).Info("s3 upload enabled")
	}

	log.WithComponent("result-writer").Info("result writer initialized")
	return w, nil
}

func (w *ResultWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("result writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("result-writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting result writer")

	for _, dir := range []string{w.config.Output.ReplayDir, w.config.Output.AggregateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	for i := 0; i < w.config.Writer.MaxWorkers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	go w.metricsReporter(ctx)

	log.WithFields(logger.Fields{"workers": w.config.Writer.MaxWorkers}).Info("result writer started successfully")
	return nil
}

func (w *ResultWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.log.WithComponent("result-writer").Info("stopping result writer")
	w.wg.Wait()
	w.log.WithComponent("result-writer").Info("result writer stopped")
}

// Wait blocks until every queued batch has been written. The processed
// channel must be closed first.
func (w *ResultWriter) Wait() {
	w.wg.Wait()
}

func (w *ResultWriter) worker(workerID int) {
	defer w.wg.Done()

	log := w.log.WithComponent("result-writer").WithFields(logger.Fields{
		"worker_id": workerID,
		"worker":    "result_writer",
	})

	log.Info("starting result writer worker")

	for {
		select {
		case <-w.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case batch, ok := <-w.processedChan:
			if !ok {
				log.Info("processed channel closed, worker stopping")
				return
			}

			start := time.Now()
			err := w.writeBatch(batch)
			duration := time.Since(start)

			if err != nil {
				w.mu.Lock()
				w.errorsCount++
				w.mu.Unlock()
				log.WithError(err).WithFields(logger.Fields{
					"batch_id": batch.BatchID,
					"date":     batch.Date,
				}).Error("failed to write result batch")
				continue
			}

			w.mu.Lock()
			w.batchesWritten++
			w.rowsWritten += int64(batch.RecordCount)
			w.mu.Unlock()

			logger.LogPerformanceEntry(log, "result-writer", "write_batch", duration, logger.Fields{
				"worker_id":    workerID,
				"date":         batch.Date,
				"record_count": batch.RecordCount,
			})
		}
	}
}

// writeBatch lands one date's outputs in every enabled format.
func (w *ResultWriter) writeBatch(batch models.ResultBatch) error {
	outputs := []struct {
		kind string
		dir  string
		tbl  *table.Table
	}{
		{"replay", w.config.Output.ReplayDir, batch.Trades},
		{"markout", w.config.Output.AggregateDir, batch.Aggregate},
	}

	for _, out := range outputs {
		if out.tbl == nil {
			continue
		}
		base := fmt.Sprintf("%s_%s", out.kind, batch.Date)

		if w.config.Output.Formats.Parquet.Enabled {
			data, err := TableParquetBytes(out.tbl, w.config.Output.Formats.Parquet.Compression)
			if err != nil {
				return fmt.Errorf("%s %s: %w", out.kind, batch.Date, err)
			}
			path := filepath.Join(out.dir, base+".parquet")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("%s %s: %w", out.kind, batch.Date, err)
			}
			logger.IncrementFileWrite(out.tbl.NumRows())

			if w.s3Client != nil {
				key := w.s3Key(out.kind, base+".parquet")
				if err := uploadToS3(w.ctx, w.s3Client, w.config, key, data, "application/octet-stream"); err != nil {
					return err
				}
				logger.IncrementS3Upload(out.tbl.NumRows())
			}
		}

		if w.config.Output.Formats.CSV.Enabled {
			path := filepath.Join(out.dir, base+".csv")
			if err := WriteTableCSV(out.tbl, path); err != nil {
				return fmt.Errorf("%s %s: %w", out.kind, batch.Date, err)
			}
			logger.IncrementFileWrite(out.tbl.NumRows())
		}
	}

	w.log.WithComponent("result-writer").WithFields(logger.Fields{
		"batch_id":     batch.BatchID,
		"date":         batch.Date,
		"record_count": batch.RecordCount,
	}).Info("result batch written")

	return nil
}

func (w *ResultWriter) s3Key(kind, filename string) string {
	key := filepath.Join(w.config.Storage.S3.KeyPrefix, kind, filename)
	return filepath.ToSlash(key)
}

func (w *ResultWriter) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reportMetrics()
		}
	}
}

func (w *ResultWriter) reportMetrics() {
	w.mu.RLock()
	batchesWritten := w.batchesWritten
	rowsWritten := w.rowsWritten
	errorsCount := w.errorsCount
	w.mu.RUnlock()

	log := w.log.WithComponent("result-writer")
	w.log.LogMetric("result-writer", "batches_written", batchesWritten, "counter", logger.Fields{})
	w.log.LogMetric("result-writer", "rows_written", rowsWritten, "counter", logger.Fields{})
	w.log.LogMetric("result-writer", "errors_count", errorsCount, "counter", logger.Fields{})

	log.WithFields(logger.Fields{
		"batches_written": batchesWritten,
		"rows_written":    rowsWritten,
		"errors_count":    errorsCount,
	}).Info("result writer metrics")
}
