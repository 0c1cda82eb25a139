package refactor

import (
	"sort"
	"strings"

	"github.com/mamaar/merak/pkg/types"
)

// Span replaces an inclusive, 1-based line range of a unit with the text of
// its fragments. Every fragment is emitted on its own line, indented with the
// indentation captured from the original statement.
type Span struct {
	start     int
	end       int
	indent    string
	fragments []types.Fragment
}

// NewSpan creates an empty span over lines [start, end].
func NewSpan(start, end int, indent string) *Span {
	if end < start {
		end = start
	}
	return &Span{start: start, end: end, indent: indent}
}

// Lines returns the first and last line covered by the span.
func (s *Span) Lines() (int, int) { return s.start, s.end }

// Indent returns the captured indentation.
func (s *Span) Indent() string { return s.indent }

// Fragments returns a copy of the current fragments.
func (s *Span) Fragments() []types.Fragment {
	return append([]types.Fragment(nil), s.fragments...)
}

// Add appends a fragment.
func (s *Span) Add(f types.Fragment) error {
	if f == nil {
		return types.NewError(types.InvalidOperation, "nil fragment added to span at line %d", s.start)
	}
	s.fragments = append(s.fragments, f)
	return nil
}

// Transform replaces the fragments with the concatenation of fn applied to
// each of them, in order. The span is left untouched if fn fails.
func (s *Span) Transform(fn func(types.Fragment) ([]types.Fragment, error)) error {
	var out []types.Fragment
	for _, f := range s.fragments {
		res, err := fn(f)
		if err != nil {
			return err
		}
		for _, r := range res {
			if r == nil {
				return types.NewError(types.InvalidOperation, "transform produced a nil fragment at line %d", s.start)
			}
		}
		out = append(out, res...)
	}
	s.fragments = out
	return nil
}

// Text renders the replacement text using eol as the line terminator.
func (s *Span) Text(eol string) string {
	var b strings.Builder
	for _, f := range s.fragments {
		b.WriteString(s.indent)
		b.WriteString(f.Text())
		b.WriteString(eol)
	}
	return b.String()
}

func (s *Span) overlaps(o *Span) bool {
	return s.start <= o.end && o.start <= s.end
}

// Plan is the ordered set of spans of one unit. Spans never overlap.
type Plan struct {
	spans []*Span
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{}
}

// Add inserts a span, keeping the plan sorted by start line.
func (p *Plan) Add(s *Span) error {
	if s == nil {
		return types.NewError(types.InvalidOperation, "nil span added to plan")
	}
	i := sort.Search(len(p.spans), func(i int) bool { return p.spans[i].start >= s.start })
	if i > 0 && p.spans[i-1].overlaps(s) {
		return types.NewError(types.InvalidOperation, "span %d-%d overlaps span %d-%d", s.start, s.end, p.spans[i-1].start, p.spans[i-1].end)
	}
	if i < len(p.spans) && p.spans[i].overlaps(s) {
		return types.NewError(types.InvalidOperation, "span %d-%d overlaps span %d-%d", s.start, s.end, p.spans[i].start, p.spans[i].end)
	}
	p.spans = append(p.spans, nil)
	copy(p.spans[i+1:], p.spans[i:])
	p.spans[i] = s
	return nil
}

// Spans returns the spans sorted by start line.
func (p *Plan) Spans() []*Span {
	return append([]*Span(nil), p.spans...)
}

// Len returns the number of spans.
func (p *Plan) Len() int { return len(p.spans) }

// Transform applies fn to every span. Spans transformed before a failure
// keep their new fragments.
func (p *Plan) Transform(fn func(types.Fragment) ([]types.Fragment, error)) error {
	for _, s := range p.spans {
		if err := s.Transform(fn); err != nil {
			return err
		}
	}
	return nil
}

// Render reconstructs a unit from its original text and plan. Lines outside
// any span are copied verbatim, so an empty plan reproduces original exactly.
func Render(original string, plan *Plan) string {
	if plan == nil || len(plan.spans) == 0 {
		return original
	}

	var b strings.Builder
	b.Grow(len(original))
	spans := plan.spans
	next := 0
	lineno := 0
	for rest := original; rest != ""; {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]
		lineno++

		for next < len(spans) && lineno > spans[next].end {
			next++
		}
		if next == len(spans) || lineno < spans[next].start {
			b.WriteString(line)
			continue
		}
		if lineno == spans[next].start {
			b.WriteString(spans[next].Text(lineEnding(line)))
		}
	}
	return b.String()
}

// lineEnding returns the terminator of line, defaulting to "\n" for the
// unterminated last line of a file.
func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
