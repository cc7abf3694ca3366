package activity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultBinWidth is assumed when a recording has too few rows to infer it.
const DefaultBinWidth = time.Minute

// Params controls how a recording is placed on the light/dark cycle.
type Params struct {
	Lights LightCycle
	// StartDay is the day of the fish's life on which recording began.
	StartDay int
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

// Load reads an activity file and a genotype file and returns the combined
// dataset at the recording's native resolution.
func Load(activityPath, genotypePath string, p Params) (*Dataset, error) {
	gt, err := LoadGenotypes(genotypePath)
	if err != nil {
		return nil, err
	}
	rows, err := readTable(activityPath)
	if err != nil {
		return nil, err
	}
	ds, err := Build(rows, gt, p)
	if err != nil {
		return nil, fmt.Errorf("activity file %s: %w", activityPath, err)
	}
	return ds, nil
}

// record is a parsed activity row before alignment.
type record struct {
	fish     int
	at       time.Time
	activity float64
}

// Build assembles a dataset from activity rows (header first) and a genotype table.
func Build(rows [][]string, gt *Genotypes, p Params) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := make(map[string]int)
	for i := range rows[0] {
		cols[strings.ToLower(cell(rows[0], i))] = i
	}
	for _, name := range []string{"location", "stdate", "sttime", "middur"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var recs []record
	for n, row := range rows[1:] {
		line := n + 2
		loc := cell(row, cols["location"])
		if loc == "" {
			continue
		}
		fish, err := parseLocation(loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, ok := gt.ByFish[fish]; !ok {
			continue
		}
		at, err := parseTimestamp(cell(row, cols["stdate"]), cell(row, cols["sttime"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		act, err := strconv.ParseFloat(cell(row, cols["middur"]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid middur %q", line, cell(row, cols["middur"]))
		}
		recs = append(recs, record{fish: fish, at: at, activity: act})
	}
	if len(recs) == 0 {
		return nil, ErrNoData
	}

	return assemble(recs, gt, p), nil
}

func assemble(recs []record, gt *Genotypes, p Params) *Dataset {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].fish != recs[j].fish {
			return recs[i].fish < recs[j].fish
		}
		return recs[i].at.Before(recs[j].at)
	})

	start, end := recs[0].at, recs[0].at
	for _, r := range recs {
		if r.at.Before(start) {
			start = r.at
		}
		if r.at.After(end) {
			end = r.at
		}
	}

	width := inferBinWidth(recs)
	firstDay := midnight(start)
	origin := p.Lights.On.On(firstDay)
	hours := func(t time.Time) float64 { return t.Sub(origin).Hours() }

	ds := &Dataset{
		Series:   make(map[int][]Sample),
		BinWidth: width,
		Window:   1,
		Start:    start,
	}
	for _, r := range recs {
		s := Sample{
			Fish:     r.fish,
			Genotype: gt.ByFish[r.fish],
			Time:     r.at,
			Day:      p.StartDay + int(midnight(r.at).Sub(firstDay).Hours()/24),
			Light:    p.Lights.IsLight(r.at),
			Activity: r.activity,
			Left:     hours(r.at),
			Right:    hours(r.at.Add(width)),
		}
		if r.activity == 0 {
			s.Sleep = width.Minutes()
		}
		ds.Series[r.fish] = append(ds.Series[r.fish], s)
	}

	present := make(map[string]bool)
	for _, samples := range ds.Series {
		present[samples[0].Genotype] = true
	}
	for _, g := range gt.Order {
		if present[g] {
			ds.Genotypes = append(ds.Genotypes, g)
		}
	}

	for _, iv := range p.Lights.DarkIntervals(start, end.Add(width)) {
		ds.Dark = append(ds.Dark, Interval{Start: hours(iv[0]), End: hours(iv[1])})
	}
	return ds
}

// inferBinWidth returns the median spacing between consecutive rows of the
// first fish with at least two rows.
func inferBinWidth(recs []record) time.Duration {
	var deltas []time.Duration
	for i := 1; i < len(recs); i++ {
		if recs[i].fish != recs[i-1].fish {
			if len(deltas) > 0 {
				break
			}
			continue
		}
		if d := recs[i].at.Sub(recs[i-1].at); d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return DefaultBinWidth
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	return deltas[len(deltas)/2]
}

// parseLocation extracts the fish id from a well label such as "c001".
func parseLocation(loc string) (int, error) {
	digits := strings.TrimLeftFunc(loc, func(r rune) bool { return !unicode.IsDigit(r) })
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid location %q", loc)
	}
	return id, nil
}

func parseTimestamp(date, clock string) (time.Time, error) {
	v := date + " " + clock
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}
