package domain

import "sort"

// RankBands assigns fixed numeric priority bands per source class. The bands
// guarantee the authoritative (primary) source is never displaced by a
// higher-magnitude but less-authoritative supplementary alert, while still
// surfacing genuinely severe supplementary events above low-priority primary
// advisories. Hand-tuned policy values, not derived constants.
type RankBands struct {
	PrimaryCritical      int // default 15
	PrimaryHigh          int // default 12
	PrimaryDefault       int // default 10
	SupplementaryHigh    int // default 7; each further supplementary source scores one lower, floor 6
	SupplementaryDefault int // default 5; floor 4
	Limit                int // max consolidated entries, default 8
}

// DefaultRankBands returns the standard consolidation policy.
func DefaultRankBands() RankBands {
	return RankBands{
		PrimaryCritical:      15,
		PrimaryHigh:          12,
		PrimaryDefault:       10,
		SupplementaryHigh:    7,
		SupplementaryDefault: 5,
		Limit:                8,
	}
}

type rankedAlert struct {
	alert   LocationAlert
	band    int
	primary bool
	order   int
}

// Consolidate merges one primary (official) alert list with any number of
// supplementary lists into a single ranked list capped at bands.Limit.
//
// Sort key, in order: priority band descending, severity rank descending,
// primary-source first on exact ties, then insertion order.
func Consolidate(bands RankBands, primary []LocationAlert, supplementary ...[]LocationAlert) []LocationAlert {
	ranked := make([]rankedAlert, 0, len(primary))

	for _, a := range primary {
		ranked = append(ranked, rankedAlert{
			alert:   a,
			band:    bands.primaryBand(a.Severity),
			primary: true,
			order:   len(ranked),
		})
	}
	for i, list := range supplementary {
		for _, a := range list {
			ranked = append(ranked, rankedAlert{
				alert: a,
				band:  bands.supplementaryBand(a.Severity, i),
				order: len(ranked),
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].band != ranked[j].band {
			return ranked[i].band > ranked[j].band
		}
		if ri, rj := ranked[i].alert.Severity.Rank(), ranked[j].alert.Severity.Rank(); ri != rj {
			return ri > rj
		}
		if ranked[i].primary != ranked[j].primary {
			return ranked[i].primary
		}
		return ranked[i].order < ranked[j].order
	})

	limit := bands.Limit
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	out := make([]LocationAlert, 0, limit)
	for _, r := range ranked[:limit] {
		out = append(out, r.alert)
	}
	return out
}

func (b RankBands) primaryBand(s Severity) int {
	switch s {
	case SeverityCritical:
		return b.PrimaryCritical
	case SeverityHigh:
		return b.PrimaryHigh
	default:
		return b.PrimaryDefault
	}
}

// supplementaryBand scores one lower per extra supplementary source so earlier
// sources outrank later ones, bounded one below the first source's band.
func (b RankBands) supplementaryBand(s Severity, sourceIndex int) int {
	band := b.SupplementaryDefault
	floor := b.SupplementaryDefault - 1
	if s == SeverityHigh || s == SeverityCritical {
		band = b.SupplementaryHigh
		floor = b.SupplementaryHigh - 1
	}
	band -= sourceIndex
	if band < floor {
		band = floor
	}
	return band
}
