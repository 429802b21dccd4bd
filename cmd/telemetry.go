package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
)

const telemetryFile = "telemetry.jsonl"

type telemetryRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	Command             string    `json:"command"`
	TargetCount         int       `json:"target_count"`
	SuccessCount        int       `json:"success_count"`
	ErrorCount          int       `json:"error_count"`
	SuccessRate         float64   `json:"success_rate"`
	DurationSeconds     float64   `json:"duration_seconds"`
	AvgDurationPerAudit float64   `json:"avg_duration_per_audit"`
	AvgOverallScore     float64   `json:"avg_overall_score"`
}

// recordTelemetry appends one line describing a batch run to dir/telemetry.jsonl.
func recordTelemetry(dir, command string, results []audit.Result, duration time.Duration) error {
	okCount, errorCount := summarizeResults(results)
	total := len(results)

	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		Command:         command,
		TargetCount:     total,
		SuccessCount:    okCount,
		ErrorCount:      errorCount,
		DurationSeconds: duration.Seconds(),
	}
	if total > 0 {
		record.SuccessRate = float64(okCount) / float64(total) * 100
		record.AvgDurationPerAudit = duration.Seconds() / float64(total)
	}
	if okCount > 0 {
		var sum float64
		for _, r := range results {
			if !r.Failed() {
				sum += r.OverallScore
			}
		}
		record.AvgOverallScore = sum / float64(okCount)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, telemetryFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}

func summarizeResults(results []audit.Result) (okCount, errorCount int) {
	for _, r := range results {
		if r.Failed() {
			errorCount++
		} else {
			okCount++
		}
	}
	return okCount, errorCount
}
