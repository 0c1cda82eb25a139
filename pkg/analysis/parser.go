package analysis

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mamaar/merak/pkg/types"
)

// ImportRecord is one logical line of a source unit that holds at least one
// import directive. The fragments replace lines StartLine..EndLine (1-based,
// inclusive) when the unit is reconstructed.
type ImportRecord struct {
	StartLine int
	EndLine   int
	Indent    string
	// Fragments are *types.Import for each import statement of the line and
	// *types.Raw for any other statement joined to it with ";".
	Fragments []types.Fragment
}

// ParseImportsFile reads filename and scans it with ParseImports.
func ParseImportsFile(filename string) (string, []ImportRecord, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}
	records, err := ParseImports(string(content))
	if err != nil {
		if re, ok := err.(*types.RefactorError); ok {
			re.File = filename
		}
		return "", nil, err
	}
	return string(content), records, nil
}

// ParseImports scans Python source and returns every logical line that
// starts with an import statement, in source order.
//
// Only statements that begin a logical line (or follow another statement
// of that line after ";") are collected. Imports nested in a one-line
// compound statement ("if x: import y") are left alone since their line
// cannot be replaced without touching the surrounding code.
func ParseImports(src string) ([]ImportRecord, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	var records []ImportRecord
	for _, line := range splitLogicalLines(toks) {
		rec, ok := parseLogicalLine(src, line)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

type tokenKind int

const (
	tokName tokenKind = iota
	tokOp
	tokString
	tokNumber
	tokNewline
)

type token struct {
	kind       tokenKind
	text       string
	start, end int // byte offsets into the source
	line       int
	endLine    int
	depth      int // bracket depth before the token
}

var stringPrefixes = map[string]bool{
	"r": true, "u": true, "b": true, "f": true, "t": true,
	"br": true, "rb": true, "fr": true, "rf": true, "tr": true, "rt": true,
}

var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"with": true, "def": true, "class": true, "try": true, "except": true,
	"finally": true, "async": true,
}

// tokenize is a reduced Python tokenizer. It only distinguishes what the
// import scanner needs: names, operators, strings, numbers and the end of
// logical lines. Comments and continuation backslashes are dropped.
func tokenize(src string) ([]token, error) {
	var (
		toks  []token
		line  = 1
		depth = 0
		i     = 0
	)

	emit := func(kind tokenKind, start, end, startLine int) {
		toks = append(toks, token{
			kind:    kind,
			text:    src[start:end],
			start:   start,
			end:     end,
			line:    startLine,
			endLine: line,
			depth:   depth,
		})
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			if depth == 0 && len(toks) > 0 && toks[len(toks)-1].kind != tokNewline {
				emit(tokNewline, i, i, line)
			}
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '\\':
			// Explicit line joining.
			j := i + 1
			if j < len(src) && src[j] == '\r' {
				j++
			}
			if j < len(src) && src[j] == '\n' {
				line++
				i = j + 1
				continue
			}
			emit(tokOp, i, i+1, line)
			i++
		case c == '"' || c == '\'':
			start, startLine := i, line
			end, lines, err := scanString(src, i)
			if err != nil {
				return nil, &types.RefactorError{Type: types.ParseError, Message: err.Error(), Line: startLine, Column: columnOf(src, start)}
			}
			line += lines
			i = end
			emit(tokString, start, end, startLine)
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (isIdentByte(src[i]) || src[i] == '.') {
				i++
			}
			emit(tokNumber, start, i, line)
		case isIdentStart(src, i):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			if i < len(src) && (src[i] == '"' || src[i] == '\'') && stringPrefixes[strings.ToLower(src[start:i])] {
				startLine := line
				end, lines, err := scanString(src, i)
				if err != nil {
					return nil, &types.RefactorError{Type: types.ParseError, Message: err.Error(), Line: startLine, Column: columnOf(src, start)}
				}
				line += lines
				i = end
				emit(tokString, start, end, startLine)
				continue
			}
			emit(tokName, start, i, line)
		default:
			switch c {
			case '(', '[', '{':
				emit(tokOp, i, i+1, line)
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
				emit(tokOp, i, i+1, line)
			default:
				_, size := utf8.DecodeRuneInString(src[i:])
				emit(tokOp, i, i+size, line)
				i += size
				continue
			}
			i++
		}
	}
	if len(toks) > 0 && toks[len(toks)-1].kind != tokNewline {
		emit(tokNewline, len(src), len(src), line)
	}
	return toks, nil
}

// scanString returns the offset just past the string literal whose opening
// quote is at src[i], and the number of newlines it spans.
func scanString(src string, i int) (int, int, error) {
	q := src[i]
	triple := strings.HasPrefix(src[i:], strings.Repeat(string(q), 3))
	lines := 0
	if triple {
		i += 3
	} else {
		i++
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\':
			if strings.HasPrefix(src[i+1:], "\r\n") {
				lines++
				i += 3
				continue
			}
			if i+1 < len(src) && src[i+1] == '\n' {
				lines++
			}
			i += 2
			continue
		case c == '\n':
			if !triple {
				return 0, 0, fmt.Errorf("unterminated string literal")
			}
			lines++
		case c == q:
			if !triple {
				return i + 1, lines, nil
			}
			if strings.HasPrefix(src[i:], strings.Repeat(string(q), 3)) {
				return i + 3, lines, nil
			}
		}
		i++
	}
	return 0, 0, fmt.Errorf("unterminated string literal")
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= utf8.RuneSelf
}

func isIdentStart(src string, i int) bool {
	r, _ := utf8.DecodeRuneInString(src[i:])
	return r == '_' || unicode.IsLetter(r)
}

func columnOf(src string, offset int) int {
	return offset - (strings.LastIndexByte(src[:offset], '\n') + 1)
}

// splitLogicalLines groups tokens by logical line, dropping the newline
// markers.
func splitLogicalLines(toks []token) [][]token {
	var (
		lines [][]token
		cur   []token
	)
	for _, t := range toks {
		if t.kind == tokNewline {
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return lines
}

func parseLogicalLine(src string, line []token) (ImportRecord, bool) {
	stmts := splitStatements(line)
	if len(stmts) == 0 || opensSuite(stmts[0]) {
		return ImportRecord{}, false
	}

	var (
		frags   []types.Fragment
		imports int
	)
	for _, stmt := range stmts {
		if imp := parseImportStatement(stmt); imp != nil {
			frags = append(frags, imp)
			imports++
			continue
		}
		frags = append(frags, &types.Raw{Code: src[stmt[0].start:stmt[len(stmt)-1].end]})
	}
	if imports == 0 {
		return ImportRecord{}, false
	}

	first, last := line[0], line[len(line)-1]
	lineStart := strings.LastIndexByte(src[:first.start], '\n') + 1
	return ImportRecord{
		StartLine: first.line,
		EndLine:   last.endLine,
		Indent:    src[lineStart:first.start],
		Fragments: frags,
	}, true
}

func splitStatements(line []token) [][]token {
	var (
		stmts [][]token
		cur   []token
	)
	for _, t := range line {
		if t.kind == tokOp && t.text == ";" && t.depth == 0 {
			if len(cur) > 0 {
				stmts = append(stmts, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		stmts = append(stmts, cur)
	}
	return stmts
}

// opensSuite reports whether stmt is the header of a compound statement,
// in which case statements after ":" belong to its suite.
func opensSuite(stmt []token) bool {
	head := stmt[0]
	if head.kind == tokOp && head.text == "@" {
		return true
	}
	if head.kind != tokName {
		return false
	}
	if compoundKeywords[head.text] {
		return true
	}
	if head.text == "match" || head.text == "case" {
		for _, t := range stmt[1:] {
			if t.kind == tokOp && t.text == ":" && t.depth == 0 {
				return true
			}
		}
	}
	return false
}

// importParser walks the tokens of one statement.
type importParser struct {
	toks []token
	pos  int
}

func (p *importParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *importParser) accept(kind tokenKind, text string) bool {
	t, ok := p.peek()
	if !ok || t.kind != kind || (text != "" && t.text != text) {
		return false
	}
	p.pos++
	return true
}

func (p *importParser) name() (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokName {
		return "", false
	}
	p.pos++
	return t.text, true
}

func (p *importParser) dottedName() (string, bool) {
	first, ok := p.name()
	if !ok {
		return "", false
	}
	parts := []string{first}
	for p.accept(tokOp, ".") {
		next, ok := p.name()
		if !ok {
			return "", false
		}
		parts = append(parts, next)
	}
	return strings.Join(parts, "."), true
}

func (p *importParser) alias(dotted bool) (types.Alias, bool) {
	var (
		a  types.Alias
		ok bool
	)
	if dotted {
		a.Name, ok = p.dottedName()
	} else {
		a.Name, ok = p.name()
	}
	if !ok {
		return a, false
	}
	if p.accept(tokName, "as") {
		if a.AsName, ok = p.name(); !ok {
			return a, false
		}
	}
	return a, true
}

func (p *importParser) done() bool {
	return p.pos == len(p.toks)
}

// parseImportStatement returns nil when stmt is not a well-formed import.
func parseImportStatement(stmt []token) *types.Import {
	p := &importParser{toks: stmt}
	switch {
	case p.accept(tokName, "import"):
		imp := &types.Import{}
		for {
			a, ok := p.alias(true)
			if !ok {
				return nil
			}
			imp.Names = append(imp.Names, a)
			if !p.accept(tokOp, ",") {
				break
			}
		}
		if !p.done() || imp.Validate() != nil {
			return nil
		}
		return imp

	case p.accept(tokName, "from"):
		imp := &types.Import{From: true}
		for p.accept(tokOp, ".") {
			imp.Level++
		}
		if t, ok := p.peek(); ok && t.kind == tokName && t.text != "import" {
			imp.Module, _ = p.dottedName()
			if imp.Module == "" {
				return nil
			}
		}
		if !p.accept(tokName, "import") {
			return nil
		}
		switch {
		case p.accept(tokOp, "*"):
			imp.Names = []types.Alias{{Name: "*"}}
		case p.accept(tokOp, "("):
			for !p.accept(tokOp, ")") {
				a, ok := p.alias(false)
				if !ok {
					return nil
				}
				imp.Names = append(imp.Names, a)
				if !p.accept(tokOp, ",") {
					if !p.accept(tokOp, ")") {
						return nil
					}
					break
				}
			}
		default:
			for {
				a, ok := p.alias(false)
				if !ok {
					return nil
				}
				imp.Names = append(imp.Names, a)
				if !p.accept(tokOp, ",") {
					break
				}
			}
		}
		if !p.done() || imp.Validate() != nil {
			return nil
		}
		return imp
	}
	return nil
}
