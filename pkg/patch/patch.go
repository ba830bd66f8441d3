// Package patch rewrites inline snapshot literals in place. It parses a
// test source file once, locates the exact span of the literal inside the
// snaptest.Inline(...) marker at a requested line, and splices in new
// rendered content while keeping the spans of later edits in the same file
// correct.
package patch

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// markerName is the call wrapping every inline literal. A call expression
// is an inline-snapshot candidate exactly when its final argument is a
// call to this identifier carrying a single string literal.
const markerName = "Inline"

// ParseError means the target source file does not parse. No partial patch
// is attempted for that file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// site is the located span of one inline literal. Lines and columns are
// 0-based indices into FilePatcher.lines.
type site struct {
	startLine, startCol int
	endLine, endCol     int
	indent              string
}

// FilePatcher holds one source file's parsed form and line buffer, plus
// the ordered inline sites consumed so far. One patcher per file; edits
// are applied sequentially through SetContents.
type FilePatcher struct {
	path    string
	lines   []string
	newline string
	fset    *token.FileSet
	file    *ast.File
	sites   []site
}

// Open reads and parses a source file. Unparsable source is fatal for the
// whole file.
func Open(path string) (*FilePatcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, data, parser.ParseComments)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	newline := "\n"
	if strings.Contains(string(data), "\r\n") {
		newline = "\r\n"
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return &FilePatcher{
		path:    path,
		lines:   lines,
		newline: newline,
		fset:    fset,
		file:    file,
	}, nil
}

// AddInlineSite locates the inline literal belonging to the assertion at
// the given 1-based line and records its span. It reports false when no
// candidate matches the line, or when the matched span was already
// consumed (a loop body emitting the same call site repeatedly).
func (p *FilePatcher) AddInlineSite(line int) bool {
	s, ok := p.findInlineLiteral(line)
	if !ok {
		return false
	}
	for _, existing := range p.sites {
		if s.startLine <= existing.endLine && existing.startLine <= s.endLine {
			return false
		}
	}
	if n := len(p.sites); n > 0 && p.sites[n-1].endLine > s.startLine {
		return false
	}
	p.sites = append(p.sites, s)
	return true
}

// Len returns the number of recorded sites.
func (p *FilePatcher) Len() int { return len(p.sites) }

// NewLine returns the current 1-based line of a recorded site's literal,
// reflecting any edits already applied before it.
func (p *FilePatcher) NewLine(id int) int {
	return p.sites[id].startLine + 1
}

// SetContents renders the body as an inline literal with the site's
// indentation and splices it over the recorded span, then shifts the spans
// of this and all later sites by the change in line count so subsequent
// edits target the file's current layout.
func (p *FilePatcher) SetContents(id int, contents snapshot.Contents) {
	s := p.sites[id]
	prefix := p.lines[s.startLine][:s.startCol]
	suffix := p.lines[s.endLine][s.endCol:]
	replacement := prefix + contents.ToInline(s.indent) + suffix
	newLines := strings.Split(replacement, "\n")

	oldCount := s.endLine - s.startLine + 1
	diff := len(newLines) - oldCount

	rebuilt := make([]string, 0, len(p.lines)+diff)
	rebuilt = append(rebuilt, p.lines[:s.startLine]...)
	rebuilt = append(rebuilt, newLines...)
	rebuilt = append(rebuilt, p.lines[s.endLine+1:]...)
	p.lines = rebuilt

	for i := id; i < len(p.sites); i++ {
		p.sites[i].startLine += diff
		p.sites[i].endLine += diff
	}
}

// Save writes the patched buffer back through a temp file and atomic
// rename, preserving the file's original line endings.
func (p *FilePatcher) Save() error {
	content := strings.Join(p.lines, p.newline) + p.newline
	if err := snapshot.WriteFileAtomic(p.path, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", p.path, err)
	}
	return nil
}

// findInlineLiteral walks the parse tree for the innermost candidate call
// whose line span contains the requested line. Grouping constructs
// (function literals passed to helpers) and calls nested inside argument
// lists are both reached by the recursive walk.
func (p *FilePatcher) findInlineLiteral(line int) (site, bool) {
	var found site
	ok := false
	ast.Inspect(p.file, func(n ast.Node) bool {
		call, isCall := n.(*ast.CallExpr)
		if !isCall {
			return true
		}
		start := p.fset.Position(call.Pos()).Line
		end := p.fset.Position(call.End()).Line
		if line < start || line > end {
			return true
		}
		if lit, isCandidate := inlineLiteral(call); isCandidate {
			found = p.siteFor(call, lit)
			ok = true
		}
		// Keep walking: a nested call may match the line more tightly.
		return true
	})
	return found, ok
}

// inlineLiteral returns the string literal of a candidate call: the final
// argument must be the marker call with exactly one string literal.
func inlineLiteral(call *ast.CallExpr) (*ast.BasicLit, bool) {
	if len(call.Args) == 0 {
		return nil, false
	}
	marker, isCall := call.Args[len(call.Args)-1].(*ast.CallExpr)
	if !isCall {
		return nil, false
	}
	var name string
	switch fn := marker.Fun.(type) {
	case *ast.Ident:
		name = fn.Name
	case *ast.SelectorExpr:
		name = fn.Sel.Name
	default:
		return nil, false
	}
	if name != markerName || len(marker.Args) != 1 {
		return nil, false
	}
	lit, isLit := marker.Args[0].(*ast.BasicLit)
	if !isLit || lit.Kind != token.STRING {
		return nil, false
	}
	return lit, true
}

func (p *FilePatcher) siteFor(call *ast.CallExpr, lit *ast.BasicLit) site {
	start := p.fset.Position(lit.Pos())
	end := p.fset.Position(lit.End())
	// Indentation comes from the line the call begins on, not from any
	// code preceding the call on that line.
	callLine := p.fset.Position(call.Pos()).Line - 1
	text := p.lines[callLine]
	indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
	return site{
		startLine: start.Line - 1,
		startCol:  start.Column - 1,
		endLine:   end.Line - 1,
		endCol:    end.Column - 1,
		indent:    indent,
	}
}
