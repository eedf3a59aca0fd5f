package compositor

import (
	"fmt"

	"isl-announcer/internal/catalog"
	"isl-announcer/internal/transcript"
)

// Source records how a segment's asset was chosen.
type Source string

const (
	SourceMatched  Source = "matched"
	SourceFallback Source = "fallback"
)

// WarningKind classifies a non-fatal problem with one token part.
type WarningKind string

const (
	// WarningFallback: no asset for the part, the default clip was used.
	WarningFallback WarningKind = "fallback"
	// WarningOmitted: the part contributed nothing to the output.
	WarningOmitted WarningKind = "omitted"
	// WarningRenderFailed: an asset was found but could not be encoded.
	WarningRenderFailed WarningKind = "render_failed"
)

// Warning is a non-fatal problem recorded during planning or rendering.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	TokenIndex int         `json:"tokenIndex"`
	Word       string      `json:"word"`
	Part       string      `json:"part"`
	Message    string      `json:"message"`
}

// AssetResolver finds media for a token part.
type AssetResolver interface {
	Resolve(part string) (catalog.Asset, bool)
	Default() (catalog.Asset, bool)
}

// PlannedSegment is one part of the transcript with the asset chosen for it.
type PlannedSegment struct {
	TokenIndex int           `json:"tokenIndex"`
	Word       string        `json:"word"`
	Part       string        `json:"part"`
	Caption    string        `json:"caption"`
	Asset      catalog.Asset `json:"asset"`
	Source     Source        `json:"source"`
}

// Timeline is the ordered list of segments for a transcript.
type Timeline struct {
	Tokens   int              `json:"tokens"`
	Parts    int              `json:"parts"`
	Segments []PlannedSegment `json:"segments"`
	Warnings []Warning        `json:"warnings"`
}

// PlanOptions control caption text.
type PlanOptions struct {
	CaptionPrefix string
}

// Plan resolves every part of tokens in order. A part without an asset gets
// the default clip; if there is no default it is omitted with a warning.
func Plan(tokens []transcript.Token, r AssetResolver, opts PlanOptions) *Timeline {
	tl := &Timeline{
		Tokens:   len(tokens),
		Parts:    transcript.PartCount(tokens),
		Segments: []PlannedSegment{},
		Warnings: []Warning{},
	}

	def, hasDefault := r.Default()

	for i, tok := range tokens {
		for _, part := range tok.Parts {
			if asset, ok := r.Resolve(part); ok {
				tl.Segments = append(tl.Segments, PlannedSegment{
					TokenIndex: i,
					Word:       tok.Word,
					Part:       part,
					Caption:    opts.CaptionPrefix + part,
					Asset:      asset,
					Source:     SourceMatched,
				})
				continue
			}

			if !hasDefault {
				tl.Warnings = append(tl.Warnings, Warning{
					Kind:       WarningOmitted,
					TokenIndex: i,
					Word:       tok.Word,
					Part:       part,
					Message:    fmt.Sprintf("no media for %q and no default clip", part),
				})
				continue
			}

			label := part
			if !tok.Numeric {
				label = tok.Word
			}
			tl.Segments = append(tl.Segments, PlannedSegment{
				TokenIndex: i,
				Word:       tok.Word,
				Part:       part,
				Caption:    opts.CaptionPrefix + label,
				Asset:      def,
				Source:     SourceFallback,
			})
			tl.Warnings = append(tl.Warnings, Warning{
				Kind:       WarningFallback,
				TokenIndex: i,
				Word:       tok.Word,
				Part:       part,
				Message:    fmt.Sprintf("no media for %q, using %s", part, def.Name),
			})
		}
	}

	return tl
}

// CountWarnings returns how many warnings of kind are in ws.
func CountWarnings(ws []Warning, kind WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
