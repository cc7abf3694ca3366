package activity

import (
	"fmt"
	"strconv"
)

// Genotypes assigns a genotype label to each fish.
type Genotypes struct {
	// Order lists genotypes as they appear in the file, skipping empty columns.
	Order []string
	// ByFish maps fish id to genotype label.
	ByFish map[int]string
}

// LoadGenotypes reads a genotype file.
func LoadGenotypes(path string) (*Genotypes, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	gt, err := ParseGenotypes(rows)
	if err != nil {
		return nil, fmt.Errorf("genotype file %s: %w", path, err)
	}
	return gt, nil
}

// ParseGenotypes builds a genotype table from rows. Each column is a
// genotype: its header cell names it and the cells below list fish ids.
// Description lines above the header are skipped; the header is the last row
// before the first row containing a fish id.
func ParseGenotypes(rows [][]string) (*Genotypes, error) {
	first := -1
	for i, row := range rows {
		if rowHasFishID(row) {
			first = i
			break
		}
	}
	if first < 1 {
		return nil, ErrNoGenotypeHeader
	}
	header := rows[first-1]

	gt := &Genotypes{ByFish: make(map[int]string)}
	used := make(map[int]bool)

	for _, row := range rows[first:] {
		for col := range row {
			v := cell(row, col)
			if v == "" {
				continue
			}
			name := cell(header, col)
			if name == "" {
				return nil, fmt.Errorf("%w: column %d has fish but no genotype name", ErrNoGenotypeHeader, col+1)
			}
			id, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("genotype %q: invalid fish id %q", name, v)
			}
			if prev, ok := gt.ByFish[id]; ok {
				return nil, fmt.Errorf("%w: fish %d in %q and %q", ErrDuplicateFish, id, prev, name)
			}
			gt.ByFish[id] = name
			used[col] = true
		}
	}

	for col := range header {
		if used[col] {
			gt.Order = append(gt.Order, cell(header, col))
		}
	}
	return gt, nil
}

func rowHasFishID(row []string) bool {
	for i := range row {
		if _, err := strconv.Atoi(cell(row, i)); err == nil {
			return true
		}
	}
	return false
}
