// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

package sites

import "log"

// ResolveInsideOut implements the InsideOutSite error-handling rule: if no
// traversal of a site can be found, try it with Start and End swapped; if
// that also yields nothing, skip the site entirely (ok=false) and log a
// warning. hasTraversals is supplied by the caller (package alleles, via
// its enumerator) so that this package never depends on alleles.
//
// Per the source's own behavior, a successful swap is kept for downstream
// enumeration (the swapped site is what gets returned), but skip warnings
// report the site's original orientation so log output matches the graph
// structure the operator actually constructed, not sites's own retry
// bookkeeping.
func ResolveInsideOut(site *Site, hasTraversals func(*Site) bool) (*Site, bool) {
	if hasTraversals(site) {
		return site, true
	}
	swapped := site.Swapped()
	if hasTraversals(swapped) {
		return swapped, true
	}
	log.Printf("sites: no traversals found for site %v -> %v even after inside-out retry; skipping",
		site.Start, site.End)
	return site, false
}
