// Package report renders diagnostics for the command line.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/walteh/markols/pkg/diagnostic"
	"gitlab.com/tozd/go/errors"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", errors.Errorf("unknown format %q, want text or json", s)
	}
}

// File is one checked template.
type File struct {
	Path        string
	Source      string
	Diagnostics []diagnostic.Diagnostic
}

func Write(w io.Writer, format Format, files []File, styles *Styles) error {
	switch format {
	case FormatJSON:
		return JSON(w, files)
	default:
		return Text(w, files, styles)
	}
}

// Text prints every diagnostic with a code frame and a summary line.
func Text(w io.Writer, files []File, styles *Styles) error {
	bw := bufio.NewWriter(w)

	total, withIssues := 0, 0
	for _, f := range files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		withIssues++
		for _, d := range f.Diagnostics {
			total++
			frame := newFrame(f.Source, d)
			fmt.Fprintf(bw, "%s:%d:%d  %s  %s  %s\n",
				styles.Path.Render(f.Path),
				d.Range.Start.Line+1,
				frame.column+1,
				severity(styles, d.Severity),
				d.Message,
				styles.Source.Render("("+d.Source+")"),
			)
			frame.write(bw, styles, d.Range.Start.Line+1)
		}
	}

	if total == 0 {
		fmt.Fprintln(bw, styles.Success.Render(fmt.Sprintf("no problems in %d files", len(files))))
	} else {
		fmt.Fprintln(bw, styles.Summary.Render(fmt.Sprintf("%d problems in %d of %d files", total, withIssues, len(files))))
	}

	if err := bw.Flush(); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

func severity(styles *Styles, s diagnostic.Severity) string {
	switch s {
	case diagnostic.SeverityError:
		return styles.Error.Render(s.String())
	case diagnostic.SeverityWarning:
		return styles.Warning.Render(s.String())
	case diagnostic.SeverityInformation:
		return styles.Info.Render(s.String())
	default:
		return styles.Hint.Render(s.String())
	}
}

// frame is the source line of a diagnostic with its caret span, measured in grapheme clusters so the
// carets line up under multi-byte text.
type frame struct {
	line   string
	column int
	width  int
}

func newFrame(src string, d diagnostic.Diagnostic) frame {
	start := min(max(d.Offsets.Start, 0), len(src))
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	lineEnd := strings.IndexByte(src[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += start
	}
	end := min(max(d.Offsets.End, start), lineEnd)

	line := strings.TrimSuffix(src[lineStart:lineEnd], "\r")
	return frame{
		line:   line,
		column: graphemes(src[lineStart:start]),
		width:  max(graphemes(src[start:end]), 1),
	}
}

func (f frame) write(w io.Writer, styles *Styles, lineNumber int) {
	gutter := fmt.Sprintf("%4d | ", lineNumber)
	blank := strings.Repeat(" ", len(gutter)-2) + "| "
	fmt.Fprintf(w, "%s%s\n", styles.Gutter.Render(gutter), f.line)
	fmt.Fprintf(w, "%s%s%s\n", styles.Gutter.Render(blank), strings.Repeat(" ", f.column), styles.Caret.Render(strings.Repeat("^", f.width)))
}

func graphemes(s string) int {
	n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		return len(s)
	}
	return n
}

type jsonReport struct {
	Files   []jsonFile  `json:"files"`
	Summary jsonSummary `json:"summary"`
}

type jsonFile struct {
	Path        string           `json:"path"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

type jsonDiagnostic struct {
	Source      string `json:"source"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

type jsonSummary struct {
	FilesChecked    int `json:"filesChecked"`
	FilesWithIssues int `json:"filesWithIssues"`
	TotalIssues     int `json:"totalIssues"`
}

// JSON writes the diagnostics as one document. Lines and columns are 1-based, columns in UTF-16 units.
func JSON(w io.Writer, files []File) error {
	out := jsonReport{Files: make([]jsonFile, 0, len(files))}
	for _, f := range files {
		jf := jsonFile{Path: f.Path, Diagnostics: make([]jsonDiagnostic, 0, len(f.Diagnostics))}
		for _, d := range f.Diagnostics {
			jf.Diagnostics = append(jf.Diagnostics, jsonDiagnostic{
				Source:      d.Source,
				Severity:    d.Severity.String(),
				Message:     d.Message,
				StartLine:   d.Range.Start.Line + 1,
				StartColumn: d.Range.Start.Character + 1,
				EndLine:     d.Range.End.Line + 1,
				EndColumn:   d.Range.End.Character + 1,
				StartOffset: d.Offsets.Start,
				EndOffset:   d.Offsets.End,
			})
		}
		out.Summary.FilesChecked++
		if len(jf.Diagnostics) > 0 {
			out.Summary.FilesWithIssues++
		}
		out.Summary.TotalIssues += len(jf.Diagnostics)
		out.Files = append(out.Files, jf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Errorf("encoding report: %w", err)
	}
	return nil
}
