package v2g

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Loop is one chromatin loop: two anchors joined by an interaction.
// Loop directionality is treated as undirected.
type Loop struct {
	Chrom1 string
	Start1 int64
	End1   int64
	Chrom2 string
	Start2 int64
	End2   int64
	// Significant is false for loops filtered out by the upstream caller's
	// significance flag column, when present.
	Significant bool
}

// AnchorDistance returns |center(A1) - center(A2)|. It is only meaningful
// for cis loops; trans loops report 0.
func (l *Loop) AnchorDistance() int64 {
	if normChrom(l.Chrom1) != normChrom(l.Chrom2) {
		return 0
	}
	c1 := (l.Start1 + l.End1) / 2
	c2 := (l.Start2 + l.End2) / 2
	if c1 > c2 {
		return c1 - c2
	}
	return c2 - c1
}

func normChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

// ReadBEDPE reads a loop-anchor table in BEDPE layout: chrom1 start1 end1
// chrom2 start2 end2 [significant]. Fields may be separated by tabs or
// spaces, since published loop calls ship in both conventions. A header
// line starting with "#" or naming "chrom1" is skipped. Loops flagged
// not significant are dropped.
func ReadBEDPE(path string) ([]*Loop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open loop table: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var loops []*Loop
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if lineNo == 1 && len(fields) > 0 && strings.EqualFold(fields[0], "chrom1") {
			continue
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("loop table %s line %d: expected at least 6 fields, got %d", path, lineNo, len(fields))
		}

		loop := &Loop{Chrom1: fields[0], Chrom2: fields[3], Significant: true}
		var perr error
		loop.Start1, perr = parseCoord(fields[1], perr)
		loop.End1, perr = parseCoord(fields[2], perr)
		loop.Start2, perr = parseCoord(fields[4], perr)
		loop.End2, perr = parseCoord(fields[5], perr)
		if perr != nil {
			return nil, fmt.Errorf("loop table %s line %d: %w", path, lineNo, perr)
		}

		if len(fields) >= 7 {
			loop.Significant = parseSignificance(fields[6])
		}
		if !loop.Significant {
			continue
		}

		loops = append(loops, loop)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read loop table %s: %w", path, err)
	}

	return loops, nil
}

func parseCoord(s string, prev error) (int64, error) {
	if prev != nil {
		return 0, prev
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q", s)
	}
	return v, nil
}

func parseSignificance(s string) bool {
	switch strings.ToLower(s) {
	case "0", "false", "no", "ns":
		return false
	default:
		return true
	}
}
