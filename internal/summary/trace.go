package summary

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zebrafishlab/fishviz/internal/activity"
)

// DefaultReps is the number of bootstrap replicates used when none is configured.
const DefaultReps = 1000

// ErrNoStat is returned when a trace is requested without a statistic.
var ErrNoStat = errors.New("no summary statistic selected")

// Params controls trace computation.
type Params struct {
	Signal activity.Signal
	Stat   Stat

	// ConfInt enables the bootstrap band between Percentiles.
	ConfInt     bool
	Percentiles [2]float64
	Reps        int
	Seed        uint64
}

// Point is one time point of a trace.
type Point struct {
	Left  float64 `json:"left" yaml:"left"`
	Right float64 `json:"right" yaml:"right"`
	N     int     `json:"n" yaml:"n"`
	Value float64 `json:"value" yaml:"value"`
	Low   float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High  float64 `json:"high,omitempty" yaml:"high,omitempty"`
}

// Trace is a summary statistic over a group of fish through time.
type Trace struct {
	Genotype string  `json:"genotype" yaml:"genotype"`
	Stat     Stat    `json:"stat" yaml:"stat"`
	Fish     int     `json:"fish" yaml:"fish"`
	Band     bool    `json:"band" yaml:"band"`
	Points   []Point `json:"points" yaml:"points"`
}

// grid holds the values of a group of fish on a shared time axis.
// values[t][i] is fish i at time point t, NaN where the fish has no bin.
type grid struct {
	bounds [][2]float64
	values [][]float64
}

func buildGrid(ds *activity.Dataset, fish []int, sig activity.Signal) grid {
	index := make(map[int64]int)
	var keys []int64
	bounds := make(map[int64][2]float64)
	for _, id := range fish {
		for _, s := range ds.Series[id] {
			k := s.Key()
			if _, ok := bounds[k]; !ok {
				bounds[k] = [2]float64{s.Left, s.Right}
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	g := grid{
		bounds: make([][2]float64, len(keys)),
		values: make([][]float64, len(keys)),
	}
	for t, k := range keys {
		index[k] = t
		g.bounds[t] = bounds[k]
		row := make([]float64, len(fish))
		for i := range row {
			row[i] = math.NaN()
		}
		g.values[t] = row
	}
	for i, id := range fish {
		for _, s := range ds.Series[id] {
			g.values[index[s.Key()]][i] = s.Value(sig)
		}
	}
	return g
}

// Compute returns the trace of the given fish, labeled with genotype.
func Compute(ds *activity.Dataset, genotype string, fish []int, p Params) (Trace, error) {
	if p.Stat == StatNone {
		return Trace{}, ErrNoStat
	}

	g := buildGrid(ds, fish, p.Signal)
	tr := Trace{
		Genotype: genotype,
		Stat:     p.Stat,
		Fish:     len(fish),
		Band:     p.ConfInt,
		Points:   make([]Point, len(g.values)),
	}
	for t, row := range g.values {
		n := 0
		for _, v := range row {
			if !math.IsNaN(v) {
				n++
			}
		}
		tr.Points[t] = Point{
			Left:  g.bounds[t][0],
			Right: g.bounds[t][1],
			N:     n,
			Value: p.Stat.Apply(row),
		}
	}

	if p.ConfInt {
		seed := p.Seed ^ hashLabel(genotype)
		bootstrap(g, p, rand.New(rand.NewPCG(seed, uint64(len(fish)))), tr.Points)
	}
	return tr, nil
}

// bootstrap fills Low and High of points by resampling fish with replacement.
func bootstrap(g grid, p Params, rng *rand.Rand, points []Point) {
	reps := p.Reps
	if reps <= 0 {
		reps = DefaultReps
	}
	nFish := 0
	if len(g.values) > 0 {
		nFish = len(g.values[0])
	}
	if nFish == 0 {
		return
	}

	replicates := make([][]float64, len(g.values))
	for t := range replicates {
		replicates[t] = make([]float64, 0, reps)
	}

	draw := make([]int, nFish)
	buf := make([]float64, nFish)
	for r := 0; r < reps; r++ {
		for i := range draw {
			draw[i] = rng.IntN(nFish)
		}
		for t, row := range g.values {
			for i, idx := range draw {
				buf[i] = row[idx]
			}
			if v := p.Stat.Apply(buf); !math.IsNaN(v) {
				replicates[t] = append(replicates[t], v)
			}
		}
	}

	for t := range points {
		points[t].Low = Percentile(replicates[t], p.Percentiles[0])
		points[t].High = Percentile(replicates[t], p.Percentiles[1])
	}
}

// ByGenotype computes one trace per genotype of ds, in ds.Genotypes order.
// Genotypes are processed concurrently.
func ByGenotype(ctx context.Context, ds *activity.Dataset, p Params) ([]Trace, error) {
	traces := make([]Trace, len(ds.Genotypes))
	g, ctx := errgroup.WithContext(ctx)
	for i, genotype := range ds.Genotypes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tr, err := Compute(ds, genotype, ds.FishOf(genotype), p)
			if err != nil {
				return err
			}
			traces[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}

func hashLabel(label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(label))
	return h.Sum64()
}
