package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"stylistapi/models"
)

// OutfitMarker is the boundary token the prompt instructs the model to print
// before each outfit's JSON payload.
const OutfitMarker = "===OUTFIT %d JSON==="

var outfitMarkerPattern = regexp.MustCompile(`===OUTFIT\s+(\d+)\s+JSON===`)

// Longest prefix of a marker that could be split across two deltas.
const markerTailKeep = 64

type asmState int

const (
	stateAwaitingMarker asmState = iota
	stateAwaitingBrace
	stateInJSONBlock
)

// StreamDiagnostic records a non-fatal parsing anomaly for one section.
type StreamDiagnostic struct {
	SectionIndex int    `json:"section_index"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
}

// StreamTimings captures elapsed offsets for latency comparisons between
// interleaved and all-at-the-end delivery.
type StreamTimings struct {
	FirstToken time.Duration   `json:"first_token"`
	Emissions  []time.Duration `json:"emissions"`
	StreamEnd  time.Duration   `json:"stream_end"`
}

// StreamingAssembler incrementally parses marker-delimited outfit JSON out of
// provider text deltas. Each completed object is emitted as soon as its
// closing brace arrives, without waiting for the rest of the stream.
type StreamingAssembler struct {
	buf   []byte
	pos   int
	state asmState

	sectionIndex int
	jsonStart    int
	depth        int
	inString     bool
	escaped      bool

	sawMarker   bool
	byIndex     map[int]models.OutfitCandidate
	order       []int
	diagnostics []StreamDiagnostic

	startedAt    time.Time
	firstTokenAt time.Duration
	timings      StreamTimings
}

func NewStreamingAssembler() *StreamingAssembler {
	return &StreamingAssembler{
		byIndex:   map[int]models.OutfitCandidate{},
		startedAt: time.Now(),
	}
}

// Push appends one text delta and returns any outfit candidates completed by
// it, in the order their closing braces arrived.
func (a *StreamingAssembler) Push(delta string) []models.OutfitCandidate {
	if delta == "" {
		return nil
	}
	if a.firstTokenAt == 0 {
		a.firstTokenAt = time.Since(a.startedAt)
		a.timings.FirstToken = a.firstTokenAt
	}
	a.buf = append(a.buf, delta...)

	var completed []models.OutfitCandidate
	for {
		switch a.state {
		case stateAwaitingMarker:
			loc := outfitMarkerPattern.FindSubmatchIndex(a.buf[a.pos:])
			if loc == nil {
				// Keep a short tail unscanned in case a marker straddles
				// the delta boundary.
				if len(a.buf)-a.pos > markerTailKeep {
					a.pos = len(a.buf) - markerTailKeep
				}
				return completed
			}
			index, err := strconv.Atoi(string(a.buf[a.pos+loc[2] : a.pos+loc[3]]))
			if err != nil {
				index = len(a.order) + 1
			}
			a.sectionIndex = index
			a.sawMarker = true
			a.pos += loc[1]
			a.state = stateAwaitingBrace

		case stateAwaitingBrace:
			i := bytes.IndexByte(a.buf[a.pos:], '{')
			if i == -1 {
				a.pos = len(a.buf)
				return completed
			}
			a.pos += i
			a.jsonStart = a.pos
			a.depth = 0
			a.inString = false
			a.escaped = false
			a.state = stateInJSONBlock

		case stateInJSONBlock:
			if !a.scanJSON() {
				return completed
			}
			if cand, ok := a.completeSection(); ok {
				completed = append(completed, cand)
			}
			a.state = stateAwaitingMarker
		}
	}
}

// scanJSON advances the brace-depth counter over unscanned bytes. Braces
// inside string literals never change depth. Returns true once the block's
// closing brace has been consumed.
func (a *StreamingAssembler) scanJSON() bool {
	for ; a.pos < len(a.buf); a.pos++ {
		ch := a.buf[a.pos]
		if a.inString {
			switch {
			case a.escaped:
				a.escaped = false
			case ch == '\\':
				a.escaped = true
			case ch == '"':
				a.inString = false
			}
			continue
		}
		switch ch {
		case '"':
			a.inString = true
		case '{':
			a.depth++
		case '}':
			a.depth--
			if a.depth == 0 {
				a.pos++
				return true
			}
		}
	}
	return false
}

func (a *StreamingAssembler) completeSection() (models.OutfitCandidate, bool) {
	span := a.buf[a.jsonStart:a.pos]
	var cand models.OutfitCandidate
	if err := json.Unmarshal(span, &cand); err != nil {
		a.diagnostics = append(a.diagnostics, StreamDiagnostic{
			SectionIndex: a.sectionIndex,
			Kind:         "malformed_block",
			Message:      err.Error(),
		})
		return models.OutfitCandidate{}, false
	}
	cand.SectionIndex = a.sectionIndex
	if _, dup := a.byIndex[a.sectionIndex]; dup {
		a.diagnostics = append(a.diagnostics, StreamDiagnostic{
			SectionIndex: a.sectionIndex,
			Kind:         "duplicate_section",
			Message:      fmt.Sprintf("section %d emitted twice, keeping the later block", a.sectionIndex),
		})
	} else {
		a.order = append(a.order, a.sectionIndex)
	}
	a.byIndex[a.sectionIndex] = cand
	a.timings.Emissions = append(a.timings.Emissions, time.Since(a.startedAt))
	return cand, true
}

// Finish marks end-of-stream and returns the accumulated candidates in
// arrival order, with duplicate sections replaced by their latest block. An
// unterminated block is discarded with a diagnostic. A stream that never
// produced a marker fails with no_candidates_found.
func (a *StreamingAssembler) Finish() ([]models.OutfitCandidate, error) {
	a.timings.StreamEnd = time.Since(a.startedAt)
	if a.state != stateAwaitingMarker {
		a.diagnostics = append(a.diagnostics, StreamDiagnostic{
			SectionIndex: a.sectionIndex,
			Kind:         "unterminated_block",
			Message:      fmt.Sprintf("section %d JSON block not closed at end of stream", a.sectionIndex),
		})
		a.state = stateAwaitingMarker
	}
	if !a.sawMarker {
		return nil, NewExtractionError(ExtractionErrNoCandidatesFound, "no outfit markers in stream")
	}
	out := make([]models.OutfitCandidate, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, a.byIndex[idx])
	}
	return out, nil
}

func (a *StreamingAssembler) Diagnostics() []StreamDiagnostic {
	return a.diagnostics
}

func (a *StreamingAssembler) Timings() StreamTimings {
	return a.timings
}
