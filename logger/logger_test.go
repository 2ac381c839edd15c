package logger

import (
	"io"
	"os"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestPipelineCounters(t *testing.T) {
	IncrementBatchRead(10)
	IncrementBatchRead(5)
	IncrementBatchProcessed(10)

	v, ok := channels.Load("raw_batches")
	if !ok {
		t.Fatal("raw_batches channel stat missing")
	}
	cs := v.(*channelStat)
	if cs.messages < 2 || cs.rows < 15 {
		t.Fatalf("unexpected raw_batches stat: messages=%d rows=%d", cs.messages, cs.rows)
	}

	if _, ok := channels.Load("processed_batches"); !ok {
		t.Fatal("processed_batches channel stat missing")
	}
}

func TestErrorCountersByComponent(t *testing.T) {
	log := Logger()
	log.SetOutput(io.Discard)

	before := errorsProcessor
	log.WithComponent("markout-processor").Error("boom")
	if errorsProcessor != before+1 {
		t.Fatalf("expected processor error counter to increment, got %d", errorsProcessor)
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}
