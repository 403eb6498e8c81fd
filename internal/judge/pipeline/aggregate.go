package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"coduel/internal/judge/metrics"
	"coduel/internal/judge/model"
)

const (
	stdoutTailBytes = 4000
	stderrTailBytes = 2000
)

// aggregate turns raw verdicts and metrics into the stored RunResult.
func aggregate(verdicts []string, testMetrics []metrics.TestMetric, stdout, stderr string) model.RunResult {
	metricByTest := make(map[int]metrics.TestMetric, len(testMetrics))
	for _, m := range testMetrics {
		metricByTest[m.Test] = m
	}

	tests := make([]model.TestRecord, 0, len(verdicts))
	passedCount := 0
	for idx, verdict := range verdicts {
		test := idx + 1
		passed := strings.EqualFold(verdict, "OK")
		if passed {
			passedCount++
		}
		record := model.TestRecord{
			Label:   fmt.Sprintf("Test %d", test),
			Test:    test,
			Passed:  passed,
			Verdict: verdict,
		}
		if m, ok := metricByTest[test]; ok {
			record.Elapsed = m.Elapsed
			record.ElapsedSeconds = m.ElapsedSeconds
			record.MaxRSSKB = m.MaxRSSKB
			record.ExitCode = m.ExitCode
		}
		tests = append(tests, record)
	}

	total := len(verdicts)
	ok := total > 0 && passedCount == total

	var elapsed []float64
	var memory []float64
	for _, m := range testMetrics {
		if m.ElapsedSeconds != nil {
			elapsed = append(elapsed, *m.ElapsedSeconds)
		}
		if m.MaxRSSKB != nil {
			memory = append(memory, float64(*m.MaxRSSKB))
		}
	}

	perf := model.Performance{
		TotalTests:           total,
		Passed:               passedCount,
		Failed:               total - passedCount,
		Accuracy:             accuracy(passedCount, total),
		MaxElapsedSeconds:    maxOf(elapsed),
		AvgElapsedSeconds:    avgOf(elapsed),
		MedianElapsedSeconds: median(elapsed),
		AvgMemoryKB:          avgOf(memory),
		MedianMemoryKB:       median(memory),
		Overall:              "failed",
	}
	if maxMem := maxOf(memory); maxMem != nil {
		kb := int64(*maxMem)
		perf.MaxMemoryKB = &kb
	}
	if ok {
		perf.Overall = "passed"
	}
	perf.RankingPriority = model.RankingPriority{
		Accuracy: perf.Accuracy,
		Time:     firstNonNil(perf.MedianElapsedSeconds, perf.AvgElapsedSeconds, perf.MaxElapsedSeconds),
		Memory:   firstNonNil(perf.MedianMemoryKB, perf.AvgMemoryKB, maxOf(memory)),
	}

	return model.RunResult{
		OK:          ok,
		Tests:       tests,
		Performance: perf,
		StdoutTail:  tail(stdout, stdoutTailBytes),
		StderrTail:  tail(stderr, stderrTailBytes),
	}
}

func accuracy(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

// median returns the mid value of the sequence, averaging the two middle
// elements on even length. Nil for an empty sequence.
func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	var m float64
	if len(sorted)%2 == 1 {
		m = sorted[mid]
	} else {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func maxOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}

func avgOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	a := sum / float64(len(values))
	return &a
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// tail keeps the final n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
