package activity

import "time"

// Resample merges every window consecutive bins of each fish into one.
//
// Windows never straddle a light/dark transition: each run of constant light
// state is cut separately. A run's trailing partial window is scaled up to a
// full window so it stays comparable with its neighbors.
func Resample(ds *Dataset, window int) (*Dataset, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}

	out := &Dataset{
		Genotypes: append([]string(nil), ds.Genotypes...),
		Series:    make(map[int][]Sample, len(ds.Series)),
		BinWidth:  ds.BinWidth * time.Duration(window),
		Window:    ds.Window * window,
		Dark:      ds.Dark,
		Start:     ds.Start,
	}

	for fish, samples := range ds.Series {
		var merged []Sample
		for lo := 0; lo < len(samples); {
			// Extent of the current light run.
			hi := lo
			for hi < len(samples) && samples[hi].Light == samples[lo].Light {
				hi++
			}
			for w := lo; w < hi; w += window {
				end := min(w+window, hi)
				merged = append(merged, mergeBins(samples[w:end], window))
			}
			lo = hi
		}
		out.Series[fish] = merged
	}
	return out, nil
}

func mergeBins(bins []Sample, window int) Sample {
	s := bins[0]
	s.Activity, s.Sleep = 0, 0
	for _, b := range bins {
		s.Activity += b.Activity
		s.Sleep += b.Sleep
	}
	if n := len(bins); n < window {
		scale := float64(window) / float64(n)
		s.Activity *= scale
		s.Sleep *= scale
	}
	s.Right = bins[len(bins)-1].Right
	return s
}
