package pprofexport

import (
	"math"
	"sort"
	"strings"

	"github.com/google/etwtopprof/pkg/etw"
)

// sampleFilter decides whether a sample participates in the export at
// all. Rejected samples are excluded from the output and from every
// aggregated counter.
type sampleFilter struct {
	timeStart float64
	timeEnd   float64

	// Filter tokens with forward slashes normalized to backslashes,
	// the separator of resolved image paths.
	processTokens []string
	allProcesses  bool
}

func newSampleFilter(config *Config) *sampleFilter {
	f := &sampleFilter{
		timeStart: config.TimeStart,
		timeEnd:   config.TimeEnd,
	}
	if f.timeEnd <= 0 {
		f.timeEnd = math.MaxFloat64
	}

	for _, token := range config.ProcessFilter {
		if token == AllProcesses {
			f.allProcesses = true
			continue
		}
		f.processTokens = append(f.processTokens, strings.ReplaceAll(token, "/", `\`))
	}
	return f
}

func (f *sampleFilter) accept(s *etw.Sample) bool {
	// DPC and ISR samples execute on behalf of the kernel, not the
	// process they are accounted to.
	if s.DPC || s.ISR {
		return false
	}

	if s.Timestamp < f.timeStart || s.Timestamp > f.timeEnd {
		return false
	}

	if f.allProcesses || len(f.processTokens) == 0 {
		return true
	}

	path := s.Process.ImagePath
	if path == "" {
		path = s.Process.ImageName
	}
	for _, token := range f.processTokens {
		if strings.Contains(path, token) {
			return true
		}
	}
	return false
}

// sampleStats accumulates CPU time per process and thread label plus
// the wall-clock span of exported samples. Times are in milliseconds,
// the unit of the human-readable summary.
type sampleStats struct {
	totalCPUMillis   float64
	processCPUMillis map[string]float64
	threadCPUMillis  map[string]map[string]float64

	minTimestamp float64
	maxTimestamp float64
}

func newSampleStats() *sampleStats {
	return &sampleStats{
		processCPUMillis: make(map[string]float64),
		threadCPUMillis:  make(map[string]map[string]float64),
		minTimestamp:     math.Inf(1),
		maxTimestamp:     math.Inf(-1),
	}
}

func (s *sampleStats) observe(timestamp float64) {
	s.minTimestamp = math.Min(s.minTimestamp, timestamp)
	s.maxTimestamp = math.Max(s.maxTimestamp, timestamp)
}

func (s *sampleStats) add(processLabel, threadLabel string, millis float64) {
	s.totalCPUMillis += millis
	s.processCPUMillis[processLabel] += millis

	threads := s.threadCPUMillis[processLabel]
	if threads == nil {
		threads = make(map[string]float64)
		s.threadCPUMillis[processLabel] = threads
	}
	threads[threadLabel] += millis
}

func (s *sampleStats) wallClockMillis() (float64, bool) {
	if !(s.minTimestamp < s.maxTimestamp) {
		return 0, false
	}
	return (s.maxTimestamp - s.minTimestamp) * 1000, true
}

// sortedByCPUTime returns the labels ordered by descending CPU time,
// ties broken by name to keep the output deterministic.
func sortedByCPUTime(millis map[string]float64) []string {
	labels := make([]string, 0, len(millis))
	for label := range millis {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if millis[labels[i]] != millis[labels[j]] {
			return millis[labels[i]] > millis[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}
