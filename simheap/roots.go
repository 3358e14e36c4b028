package simheap

import incmark "github.com/domyhero/v8gc"

// RootSet is a fixed list of strong roots implementing incmark.RootSet.
// A real heap's root set can move between calls (spec §4.7 step 1); this
// implementation supports that by re-reading the current slice on every
// ColorRootsGrey call rather than snapshotting it once.
type RootSet struct {
	roots *[]incmark.Object
}

// NewRootSet wraps a pointer to the caller's root slice so later
// mutation (simulating a moved root set) is observed by subsequent
// finalization rounds.
func NewRootSet(roots *[]incmark.Object) *RootSet { return &RootSet{roots: roots} }

func (r *RootSet) ColorRootsGrey(colors *incmark.ColorStore, worklist *incmark.Worklist) {
	for _, root := range *r.roots {
		if root == 0 {
			continue
		}
		if colors.WhiteToGrey(root) {
			worklist.Push(root)
		}
	}
}
