package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	rows     int64
}

var (
	errorsReader    int64
	errorsProcessor int64
	errorsWriter    int64
	warnsReader     int64
	warnsProcessor  int64
	warnsWriter     int64
	batchesRead     int64
	batchesDone     int64
	filesWritten    int64
	s3Uploads       int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	switch {
	case strings.Contains(component, "reader"):
		atomic.AddInt64(&warnsReader, 1)
	case strings.Contains(component, "processor"):
		atomic.AddInt64(&warnsProcessor, 1)
	case strings.Contains(component, "writer"):
		atomic.AddInt64(&warnsWriter, 1)
	}
}

func recordError(component string) {
	switch {
	case strings.Contains(component, "reader"):
		atomic.AddInt64(&errorsReader, 1)
	case strings.Contains(component, "processor"):
		atomic.AddInt64(&errorsProcessor, 1)
	case strings.Contains(component, "writer"):
		atomic.AddInt64(&errorsWriter, 1)
	}
}

// IncrementBatchRead records one day batch entering the pipeline.
func IncrementBatchRead(rows int) {
	atomic.AddInt64(&batchesRead, 1)
	recordChannel("raw_batches", rows)
}

// IncrementBatchProcessed records one day batch leaving the markout stage.
func IncrementBatchProcessed(rows int) {
	atomic.AddInt64(&batchesDone, 1)
	recordChannel("processed_batches", rows)
}

// IncrementFileWrite records one output file landing on disk.
func IncrementFileWrite(rows int) {
	atomic.AddInt64(&filesWritten, 1)
	recordChannel("file_writes", rows)
}

// IncrementS3Upload records one object uploaded to S3.
func IncrementS3Upload(rows int) {
	atomic.AddInt64(&s3Uploads, 1)
	recordChannel("s3_uploads", rows)
}

func RecordChannelMessage(name string, rows int) {
	recordChannel(name, rows)
}

func recordChannel(name string, rows int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.rows, int64(rows))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"rows":     atomic.LoadInt64(&cs.rows),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_reader":     atomic.LoadInt64(&errorsReader),
		"errors_processor":  atomic.LoadInt64(&errorsProcessor),
		"errors_writer":     atomic.LoadInt64(&errorsWriter),
		"warns_reader":      atomic.LoadInt64(&warnsReader),
		"warns_processor":   atomic.LoadInt64(&warnsProcessor),
		"warns_writer":      atomic.LoadInt64(&warnsWriter),
		"batches_read":      atomic.LoadInt64(&batchesRead),
		"batches_processed": atomic.LoadInt64(&batchesDone),
		"files_written":     atomic.LoadInt64(&filesWritten),
		"s3_uploads":        atomic.LoadInt64(&s3Uploads),
		"goroutines":        runtime.NumGoroutine(),
		"cpu_percent":       cpuPct,
		"memory_mb":         int64(memStats.Used) / 1024 / 1024,
		"disk_mb":           int64(diskStats.Used) / 1024 / 1024,
		"channels":          channelData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-ErrorsReader"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-ErrorsProcessor"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_processor"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-ErrorsWriter"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_writer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-BatchesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["batches_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-BatchesProcessed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["batches_processed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-FilesWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["files_written"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Vizflow-S3Uploads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_uploads"].(int64)))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Vizflow-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Vizflow-ChannelRows"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["rows"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
