package pprofexport

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/pprof/profile"
	"go.uber.org/zap"

	"github.com/google/etwtopprof/pkg/etw"
)

const (
	unknownName         = "<unknown>"
	anonymousThreadName = "anonymous thread"
)

// ErrAlreadyWritten is returned when an exporter is used after Write.
var ErrAlreadyWritten = errors.New("profile already written")

////////////////////////////////////////////////////////////////////////////////

// Exporter converts a stream of symbolized ETW CPU samples into a
// gzip-compressed pprof profile. Feed it samples with AddSample, then
// call Write exactly once. Not safe for concurrent use.
type Exporter struct {
	logger *zap.Logger
	config Config

	filter    *sampleFilter
	strtab    *stringTable
	functions *functionTable
	locations *locationTable
	stats     *sampleStats

	samples   []sampleRecord
	tracePath string
	written   bool
}

// sampleRecord is one exported sample: CPU time in nanoseconds plus the
// interned location chain, leaf frame first, then the synthetic thread
// and process frames.
type sampleRecord struct {
	valueNanos  int64
	locationIDs []uint64
}

// NewExporter validates config and builds an empty exporter. tracePath
// names the originating trace in the profile's provenance comment.
func NewExporter(config Config, tracePath string, logger *zap.Logger) (*Exporter, error) {
	var stripSourcePrefix *regexp.Regexp
	if config.StripSourceFileNamePrefix != "" {
		re, err := regexp.Compile("^(?i)(?:" + config.StripSourceFileNamePrefix + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid source file name prefix pattern %q: %w",
				config.StripSourceFileNamePrefix, err)
		}
		stripSourcePrefix = re
	}

	strtab := newStringTable()
	functions := newFunctionTable(strtab, stripSourcePrefix)

	return &Exporter{
		logger:    logger,
		config:    config,
		filter:    newSampleFilter(&config),
		strtab:    strtab,
		functions: functions,
		locations: newLocationTable(functions, config.IncludeInlinedFunctions),
		stats:     newSampleStats(),
		tracePath: tracePath,
	}, nil
}

// AddSample offers one sample to the exporter and reports whether it
// passed the configured filters. Resolution is best-effort: missing
// symbols, images and names degrade to synthetic labels, never errors.
func (e *Exporter) AddSample(s *etw.Sample) (bool, error) {
	if e.written {
		return false, ErrAlreadyWritten
	}
	if !e.filter.accept(s) {
		return false, nil
	}

	e.stats.observe(s.Timestamp)

	if len(s.Stack) == 0 {
		// The weight is still worth recording, but without frames
		// there is no stack to attribute it to.
		e.samples = append(e.samples, sampleRecord{valueNanos: s.Weight.Nanoseconds()})
		return true, nil
	}

	locationIDs := make([]uint64, 0, len(s.Stack)+2)
	for i := range s.Stack {
		frame := &s.Stack[i]
		if frame.Symbol != nil {
			locationIDs = append(locationIDs, e.locations.GetResolvedID(s.Process.ID, frame.Symbol))
			continue
		}

		image := frame.Image
		if image == "" {
			image = unknownName
		}
		locationIDs = append(locationIDs, e.locations.GetPseudoID(s.Process.ID, image, nil, unknownName))
	}

	threadLabel := s.Thread.Name
	if threadLabel == "" {
		threadLabel = anonymousThreadName
	}
	if e.config.IncludeProcessAndThreadIDs && s.Thread.ID != nil {
		threadLabel = fmt.Sprintf("%s (%d)", threadLabel, *s.Thread.ID)
	}
	locationIDs = append(locationIDs,
		e.locations.GetPseudoID(s.Process.ID, s.Process.ImageName, s.Thread.StartAddress, threadLabel))

	processLabel := s.Process.ImageName
	if e.config.IncludeProcessIDs || e.config.IncludeProcessAndThreadIDs {
		processLabel = fmt.Sprintf("%s (%d)", processLabel, s.Process.ID)
	}
	locationIDs = append(locationIDs,
		e.locations.GetPseudoID(s.Process.ID, s.Process.ImageName, s.Process.ObjectAddress, processLabel))

	e.stats.add(processLabel, threadLabel, durationMillis(s.Weight))
	e.samples = append(e.samples, sampleRecord{
		valueNanos:  s.Weight.Nanoseconds(),
		locationIDs: locationIDs,
	})
	return true, nil
}

////////////////////////////////////////////////////////////////////////////////

// Write appends the summary comments, serializes the profile and writes
// it gzip-compressed to outputPath. It consumes the exporter: any
// further AddSample or Write fails with ErrAlreadyWritten. On error the
// destination file may be left truncated; cleanup is the caller's job.
func (e *Exporter) Write(outputPath string) (int64, error) {
	if e.written {
		return 0, ErrAlreadyWritten
	}
	e.written = true

	prof := e.buildProfile()

	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer file.Close()

	if err := prof.Write(file); err != nil {
		return 0, fmt.Errorf("failed to write profile to %s: %w", outputPath, err)
	}

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", outputPath, err)
	}

	e.logger.Debug("Wrote profile",
		zap.String("path", outputPath),
		zap.Int("samples", len(e.samples)),
		zap.Int("locations", len(e.locations.locs)),
		zap.Int("functions", len(e.functions.funcs)),
		zap.Int64("bytes", info.Size()))
	return info.Size(), nil
}

// buildProfile projects the interned tables into the pprof structure.
// Interner-assigned ids are preserved as the profile entity ids.
func (e *Exporter) buildProfile() *profile.Profile {
	funcs := make([]*profile.Function, len(e.functions.funcs))
	for i, fn := range e.functions.funcs {
		funcs[i] = &profile.Function{
			ID:         fn.id,
			Name:       e.strtab.Lookup(fn.name),
			SystemName: e.strtab.Lookup(fn.systemName),
			Filename:   e.strtab.Lookup(fn.filename),
		}
	}

	locs := make([]*profile.Location, len(e.locations.locs))
	for i, loc := range e.locations.locs {
		lines := make([]profile.Line, len(loc.lines))
		for j, line := range loc.lines {
			lines[j] = profile.Line{
				Function: funcs[line.functionID-1],
				Line:     line.line,
			}
		}
		locs[i] = &profile.Location{ID: loc.id, Line: lines}
	}

	samples := make([]*profile.Sample, len(e.samples))
	for i, record := range e.samples {
		sample := &profile.Sample{Value: []int64{record.valueNanos}}
		for _, id := range record.locationIDs {
			sample.Location = append(sample.Location, locs[id-1])
		}
		samples[i] = sample
	}

	return &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		Sample:     samples,
		Location:   locs,
		Function:   funcs,
		Comments:   e.buildComments(),
	}
}

func (e *Exporter) buildComments() []string {
	comments := []string{fmt.Sprintf("Converted by etwtopprof from %s", e.tracePath)}

	wallMillis, ok := e.stats.wallClockMillis()
	if !ok {
		return append(comments, "No samples were exported.")
	}

	percent := func(millis float64) float64 {
		return millis / wallMillis * 100
	}

	comments = append(comments,
		fmt.Sprintf("Total wall clock time: %.2f ms", wallMillis),
		fmt.Sprintf("Total CPU time: %.2f ms (%.2f%%)", e.stats.totalCPUMillis, percent(e.stats.totalCPUMillis)))

	for _, process := range sortedByCPUTime(e.stats.processCPUMillis) {
		millis := e.stats.processCPUMillis[process]
		comments = append(comments, fmt.Sprintf("  %s: %.2f ms (%.2f%%)", process, millis, percent(millis)))

		threads := e.stats.threadCPUMillis[process]
		for _, thread := range sortedByCPUTime(threads) {
			comments = append(comments,
				fmt.Sprintf("    %s: %.2f ms (%.2f%%)", thread, threads[thread], percent(threads[thread])))
		}
	}
	return comments
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
