package builder

import (
	"sort"
	"strconv"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// OptionReplyPrefix prefixes list row ids of builder options.
const OptionReplyPrefix = "opt:"

// Toggle applies one pick to the current selections of a step and returns the
// new selections. Single-select steps replace; multi-select steps remove a
// repeated id and append a new one. The second result is false when the pick
// was refused because the step is full.
func Toggle(step domain.Step, current []domain.OptionID, id domain.OptionID) ([]domain.OptionID, bool) {
	if step.SingleSelect() {
		return []domain.OptionID{id}, true
	}

	out := make([]domain.OptionID, 0, len(current)+1)
	removed := false
	for _, c := range current {
		if c == id {
			removed = true
			continue
		}
		out = append(out, c)
	}
	if removed {
		return out, true
	}
	if step.MaxSelections > 0 && len(current) >= step.MaxSelections {
		return current, false
	}
	return append(out, id), true
}

// MatchOptions finds the options referenced by a normalized text: list reply
// ids, raw option ids, 1-based option numbers or option names. Names are
// returned in the order they appear in the text.
func MatchOptions(step domain.Step, text string) []domain.OptionID {
	if strings.HasPrefix(text, OptionReplyPrefix) {
		id := domain.OptionID(strings.TrimPrefix(text, OptionReplyPrefix))
		if _, ok := step.Option(id); ok {
			return []domain.OptionID{id}
		}
		return nil
	}
	if _, ok := step.Option(domain.OptionID(text)); ok {
		return []domain.OptionID{domain.OptionID(text)}
	}
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(step.Options) {
			return []domain.OptionID{step.Options[n-1].ID}
		}
		return nil
	}

	type hit struct {
		id  domain.OptionID
		pos int
	}
	var hits []hit
	for _, o := range step.Options {
		if pos := textnorm.Index(text, textnorm.Normalize(o.Name)); pos >= 0 {
			hits = append(hits, hit{o.ID, pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	ids := make([]domain.OptionID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	return ids
}

// validOptions keeps the ids that exist in the step, dropping repeats.
func validOptions(step domain.Step, ids []domain.OptionID) []domain.OptionID {
	seen := make(map[domain.OptionID]bool, len(ids))
	out := make([]domain.OptionID, 0, len(ids))
	for _, id := range ids {
		if _, ok := step.Option(id); !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
