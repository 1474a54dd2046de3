package proxy

import (
	"fmt"
	"strings"

	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/samber/lo"
)

const gapPrefix = "__gap"

// CompareLayouts reports why updated cannot replace old behind a proxy.
// Existing variables must keep label, type, slot and offset. Variables may
// be appended. A __gap may shrink to make room as long as it still ends
// where it used to. An empty result means the layouts are compatible.
func CompareLayouts(old, updated *models.StorageLayout) []string {
	var problems []string

	oldVars, oldGap := splitGap(old.Storage)
	newVars, newGap := splitGap(updated.Storage)

	for i, o := range oldVars {
		if i >= len(newVars) {
			problems = append(problems, fmt.Sprintf("variable %q at slot %s was removed", o.Label, o.Slot))
			continue
		}
		problems = append(problems, compareEntry(old, updated, o, newVars[i])...)
	}

	oldVarsEnd := layoutEnd(old, oldVars)
	if len(newVars) > len(oldVars) {
		for _, n := range newVars[len(oldVars):] {
			start, err := n.SlotNumber()
			if err != nil {
				problems = append(problems, fmt.Sprintf("variable %q has unreadable slot %q", n.Label, n.Slot))
				continue
			}
			if start < oldVarsEnd {
				problems = append(problems, fmt.Sprintf("new variable %q at slot %d overlaps existing storage", n.Label, start))
			}
		}
	}

	if newGap != nil && oldGap == nil {
		if start, err := newGap.SlotNumber(); err == nil && start < oldVarsEnd {
			problems = append(problems, fmt.Sprintf("new %s at slot %d overlaps existing storage", gapPrefix, start))
		}
	}

	if oldGap != nil {
		oldGapEnd := entryEnd(old, *oldGap)
		if newGap != nil {
			if end := entryEnd(updated, *newGap); end != oldGapEnd {
				problems = append(problems, fmt.Sprintf("%s ends at slot %d, previously %d", gapPrefix, end, oldGapEnd))
			}
		} else if end := layoutEnd(updated, newVars); end > oldGapEnd {
			problems = append(problems, fmt.Sprintf("new variables end at slot %d, past the former %s end %d", end, gapPrefix, oldGapEnd))
		}
	}

	return problems
}

func compareEntry(old, updated *models.StorageLayout, o, n models.StorageEntry) []string {
	var problems []string

	if o.Label != n.Label {
		problems = append(problems, fmt.Sprintf("variable %q at slot %s was replaced by %q", o.Label, o.Slot, n.Label))
	}
	oldType, newType := old.TypeLabel(o.Type), updated.TypeLabel(n.Type)
	if oldType != newType {
		problems = append(problems, fmt.Sprintf("%s: type changed from %s to %s", o.Label, oldType, newType))
	} else if oldSize, newSize := old.TypeSize(o.Type), updated.TypeSize(n.Type); oldSize != newSize {
		problems = append(problems, fmt.Sprintf("%s: size of %s changed from %d to %d bytes", o.Label, oldType, oldSize, newSize))
	}
	if o.Slot != n.Slot || o.Offset != n.Offset {
		problems = append(problems, fmt.Sprintf("%s: moved from slot %s offset %d to slot %s offset %d",
			o.Label, o.Slot, o.Offset, n.Slot, n.Offset))
	}
	return problems
}

// splitGap separates a trailing storage gap from the other variables.
// Only the final entry counts: gaps declared by base contracts sit in the
// middle of the layout and are compared like any other variable.
func splitGap(entries []models.StorageEntry) ([]models.StorageEntry, *models.StorageEntry) {
	last, ok := lo.Last(entries)
	if !ok || !strings.HasPrefix(last.Label, gapPrefix) {
		return entries, nil
	}
	return entries[:len(entries)-1], &last
}

// entryEnd is the first slot after the entry
func entryEnd(layout *models.StorageLayout, e models.StorageEntry) uint64 {
	start, err := e.SlotNumber()
	if err != nil {
		return 0
	}
	slots := (layout.TypeSize(e.Type) + 31) / 32
	if slots == 0 {
		slots = 1
	}
	return start + slots
}

func layoutEnd(layout *models.StorageLayout, entries []models.StorageEntry) uint64 {
	var end uint64
	for _, e := range entries {
		end = max(end, entryEnd(layout, e))
	}
	return end
}
