package model

// TestRecord is the outcome of a single test case, in file order.
type TestRecord struct {
	Label          string   `json:"label"`
	Test           int      `json:"test"`
	Passed         bool     `json:"passed"`
	Verdict        string   `json:"verdict"`
	Elapsed        string   `json:"elapsed,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_seconds"`
	MaxRSSKB       *int64   `json:"max_rss_kb"`
	ExitCode       *int     `json:"exit_code"`
}

// RankingPriority carries the values the comparator ranks on, each picked
// as median, falling back to average, falling back to max.
type RankingPriority struct {
	Accuracy float64  `json:"accuracy"`
	Time     *float64 `json:"time"`
	Memory   *float64 `json:"memory"`
}

// Performance aggregates the per-test metrics of one run.
type Performance struct {
	TotalTests           int             `json:"total_tests"`
	Passed               int             `json:"passed"`
	Failed               int             `json:"failed"`
	Accuracy             float64         `json:"accuracy"`
	MaxElapsedSeconds    *float64        `json:"max_elapsed_seconds"`
	AvgElapsedSeconds    *float64        `json:"avg_elapsed_seconds"`
	MedianElapsedSeconds *float64        `json:"median_elapsed_seconds"`
	MaxMemoryKB          *int64          `json:"max_memory_kb"`
	AvgMemoryKB          *float64        `json:"avg_memory_kb"`
	MedianMemoryKB       *float64        `json:"median_memory_kb"`
	Overall              string          `json:"overall"`
	RankingPriority      RankingPriority `json:"ranking_priority"`
}

// RunResult is the aggregated outcome of the run stage, stored as JSON in
// the job store and consumed by the ranking comparator.
type RunResult struct {
	OK          bool         `json:"ok"`
	Tests       []TestRecord `json:"tests"`
	Performance Performance  `json:"performance"`
	StdoutTail  string       `json:"stdout_tail,omitempty"`
	StderrTail  string       `json:"stderr_tail,omitempty"`
}

// RunError is stored in place of a RunResult when the judge container
// itself failed.
type RunError struct {
	Error      string `json:"error"`
	ExitCode   int    `json:"exit_code,omitempty"`
	StdoutTail string `json:"stdout_tail,omitempty"`
	StderrTail string `json:"stderr_tail,omitempty"`
}
