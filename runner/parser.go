package runner

// This file contains the parser for go test -bench text output, turning
// result lines into structured measurements.

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Measurement is one parsed benchmark result line.
type Measurement struct {
	// Benchmark name with the "Benchmark" prefix and -GOMAXPROCS
	// suffix stripped; sub-benchmarks keep their "/" separators.
	Name string
	// Iterations the line was measured over
	Iterations int64
	// Nanoseconds per operation
	NsPerOp float64
	// Bytes and allocations per operation (-benchmem only)
	BytesPerOp  int64
	AllocsPerOp int64
}

// Matches e.g.
//
//	BenchmarkEncode/small-8   1000000   1043 ns/op   112 B/op   3 allocs/op
//	BenchmarkDecode-8   500000   2410 ns/op   42.1 MB/s
var benchLine = regexp.MustCompile(`^(Benchmark\S*?)(?:-\d+)?\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+[\d.]+\s+MB/s)?(?:\s+(\d+)\s+B/op\s+(\d+)\s+allocs/op)?`)

// ParseOutput extracts benchmark measurements from go test output.
// Non-benchmark lines (PASS, ok, compile output) are skipped.
func ParseOutput(r io.Reader) ([]Measurement, error) {
	var measurements []Measurement
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		matches := benchLine.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}
		m := Measurement{Name: trimBenchmarkName(matches[1])}
		if v, err := strconv.ParseInt(matches[2], 10, 64); err == nil {
			m.Iterations = v
		}
		if v, err := strconv.ParseFloat(matches[3], 64); err == nil {
			m.NsPerOp = v
		}
		if matches[4] != "" {
			if v, err := strconv.ParseInt(matches[4], 10, 64); err == nil {
				m.BytesPerOp = v
			}
		}
		if matches[5] != "" {
			if v, err := strconv.ParseInt(matches[5], 10, 64); err == nil {
				m.AllocsPerOp = v
			}
		}
		measurements = append(measurements, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return measurements, nil
}

// trimBenchmarkName drops the "Benchmark" prefix of the top-level
// function name. Sub-benchmark segments are left untouched.
func trimBenchmarkName(name string) string {
	return strings.TrimPrefix(name, "Benchmark")
}

// benchPattern rebuilds the exact -bench regex selecting a single leaf:
// each "/"-separated segment is anchored and quoted, and the first
// segment gets its "Benchmark" prefix restored.
func benchPattern(leaf string) string {
	segments := strings.Split(leaf, "/")
	parts := make([]string, len(segments))
	for i, segment := range segments {
		name := segment
		if i == 0 {
			name = "Benchmark" + name
		}
		parts[i] = "^" + regexp.QuoteMeta(name) + "$"
	}
	return strings.Join(parts, "/")
}
