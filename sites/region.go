// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package sites

import (
	"github.com/exascience/vg-genotyper/intervals"
)

// ReferenceProjector resolves a node id's offset on the configured
// reference path, the same service package refidx's ReferenceIndex
// provides; expressed as an interface here so that package sites never
// imports package refidx.
type ReferenceProjector interface {
	Offset(nodeID int64) (offset int32, ok bool)
}

// RegionFilter scopes site discovery to a set of reference intervals, read
// from a BED file via the teacher's own bed/intervals packages.
type RegionFilter struct {
	contig    string
	intervals []intervals.Interval
}

// LoadRegionFilter reads filename as BED and keeps only the intervals on
// contig. intervals.FromBedFile groups the intervals by contig; the
// contig's intervals are then sorted by start and overlaps are merged.
func LoadRegionFilter(filename, contig string) (*RegionFilter, error) {
	byContig, err := intervals.FromBedFile(filename)
	if err != nil {
		return nil, err
	}
	ivs := byContig[contig]
	intervals.SortByStart(ivs)
	return &RegionFilter{contig: contig, intervals: intervals.Flatten(ivs)}, nil
}

// Keep reports whether a site should survive region scoping: a site with
// no reference projection on either endpoint is always kept (region
// scoping is a reference-relative convenience, not a topology change); a
// site with both endpoints on the reference is kept only if its projected
// span overlaps the filter.
func (rf *RegionFilter) Keep(s *Site, proj ReferenceProjector) bool {
	if rf == nil {
		return true
	}
	startOff, startOK := proj.Offset(s.Start.Node)
	endOff, endOK := proj.Offset(s.End.Node)
	if !startOK || !endOK {
		return true
	}
	lo, hi := startOff, endOff
	if hi < lo {
		lo, hi = hi, lo
	}
	return intervals.Overlap(rf.intervals, lo, hi)
}
