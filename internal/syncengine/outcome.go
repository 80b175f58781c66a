package syncengine

import (
	"watchsync/internal/catalog"
	"watchsync/internal/providerid"
)

// Reason explains why an item was not marked. The empty reason means the item
// was marked watched.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonSectionNotFound         Reason = "section_not_found"
	ReasonUnmatched               Reason = Reason(providerid.ReasonUnmatched)
	ReasonUnrecognizedAgent       Reason = Reason(providerid.ReasonUnrecognizedAgent)
	ReasonNoAlternateAvailable    Reason = Reason(providerid.ReasonNoAlternateAvailable)
	ReasonMalformed               Reason = Reason(providerid.ReasonMalformed)
	ReasonItemNotFoundInTarget    Reason = "item_not_found_in_target"
	ReasonEpisodeNotFoundInTarget Reason = "episode_not_found_in_target"
	ReasonShowEpisodesUnavailable Reason = "show_episodes_unavailable"
	ReasonLookupFailed            Reason = "lookup_failed"
	ReasonWriteFailed             Reason = "write_failed"
	// ReasonDryRun marks an item that would have been marked.
	ReasonDryRun Reason = "dry_run"
)

// Outcome records what happened to one source item (or a whole section when
// the section could not be resolved).
type Outcome struct {
	Kind     catalog.Kind
	Title    string
	Year     int
	Episode  string
	Raw      string
	Ref      providerid.ProviderRef
	TargetID string
	Reason   Reason
	Detail   string
}

// Marked reports whether the item was written to the target.
func (o Outcome) Marked() bool {
	return o.Reason == ReasonNone
}

// Skipped reports whether the item was neither marked nor a dry-run match.
func (o Outcome) Skipped() bool {
	return o.Reason != ReasonNone && o.Reason != ReasonDryRun
}

// Status is the coarse result label used by history and metrics.
func (o Outcome) Status() string {
	switch o.Reason {
	case ReasonNone:
		return "marked"
	case ReasonDryRun:
		return "dry_run"
	default:
		return "skipped"
	}
}

// SectionReport summarizes one section sync. Tally counts movies marked for a
// movie section and shows touched for a show section; EpisodesMarked counts
// individual episodes.
type SectionReport struct {
	Section        catalog.Section
	TargetSection  catalog.Section
	Found          bool
	Tally          int
	EpisodesMarked int
	Outcomes       []Outcome
	Err            error
}

// Skipped returns the outcomes that were not marked.
func (r SectionReport) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Skipped() {
			out = append(out, o)
		}
	}
	return out
}

func (r *SectionReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}
