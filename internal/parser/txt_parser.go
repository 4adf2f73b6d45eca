package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

// TXTParser reads hand-written summary files. Each non-empty line is one lap
// of whitespace separated key=value tokens:
//
//	date=20200101 time=08:00:00 type=running lap=0 dur=0:30:00 dis=3mi cal=-1 avghr=150
//
// dis takes a "mi" or "m" suffix and defaults to meters. cal=-1 asks for an
// estimate from pace.
type TXTParser struct{}

func NewTXTParser() *TXTParser {
	return &TXTParser{}
}

func (p *TXTParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	metrics := &models.ActivityMetrics{FileType: string(FileTypeTXT)}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lap, sport, err := parseTXTLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", lineNo, err, models.ErrNoActivityData)
		}
		if sport != "" {
			metrics.Sport = models.Sport(sport)
		}
		metrics.AddLap(lap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TXT lines: %w: %w", err, models.ErrNoActivityData)
	}
	if len(metrics.Laps) == 0 {
		return nil, fmt.Errorf("no laps found in TXT file: %w", models.ErrNoActivityData)
	}
	return metrics, nil
}

func parseTXTLine(line string) (models.LapMetrics, string, error) {
	var (
		lap   models.LapMetrics
		sport string
		date  time.Time
		clock time.Duration
	)
	for _, tok := range strings.Fields(line) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case "date":
			date, err = time.Parse("20060102", val)
		case "time":
			var secs float64
			secs, err = parseClock(val)
			clock = time.Duration(secs * float64(time.Second))
		case "type":
			sport = val
		case "dur":
			lap.Duration, err = parseClock(val)
		case "dis":
			lap.Distance, err = parseDistance(val)
		case "cal":
			lap.Calories, err = strconv.Atoi(val)
		case "avghr":
			lap.AvgHR, err = strconv.ParseFloat(val, 64)
		}
		if err != nil {
			return lap, "", fmt.Errorf("bad %s value %q: %w", key, val, err)
		}
	}
	if date.IsZero() {
		return lap, "", fmt.Errorf("missing date")
	}
	lap.Start = date.Add(clock)

	if lap.Calories == -1 {
		lap.Calories = 0
		if miles := lap.Distance / models.MetersPerMile; miles > 0 {
			pace := (lap.Duration / 60) / miles
			lap.Calories = int(models.ExpectedCalories(175, pace, miles))
		}
	}
	return lap, sport, nil
}

// parseClock converts H:MM:SS (seconds may be fractional) to seconds.
func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected H:MM:SS")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return sec + 60*float64(m+60*h), nil
}

func parseDistance(s string) (float64, error) {
	if v, ok := strings.CutSuffix(s, "mi"); ok {
		f, err := strconv.ParseFloat(v, 64)
		return f * models.MetersPerMile, err
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
}
