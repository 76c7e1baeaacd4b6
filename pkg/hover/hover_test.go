package hover_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/hover"
	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/sourcemap"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
)

const testURI = "file:///test.marko"

func open(t *testing.T, src string) *virtual.Document {
	t.Helper()
	doc, err := virtual.NewRegistry().Open(context.Background(), testURI, 1, src)
	require.NoError(t, err)
	return doc
}

func htmlOnly() *hover.Orchestrator {
	return hover.NewOrchestrator(nil, map[string]hover.Provider{virtual.SlotHTML: hover.HTMLProvider{}})
}

func TestHTMLHover(t *testing.T) {
	src := "<div>\n  <img src=\"a.png\">\n  <p>hello</p>\n</div>"

	tests := []struct {
		name     string
		place    position.Place
		contains string
		want     *position.PlaceRange
	}{
		{
			name:     "element name",
			place:    position.Place{Line: 1, Character: 4},
			contains: "Embeds an image",
			want:     &position.PlaceRange{Start: position.Place{Line: 1, Character: 3}, End: position.Place{Line: 1, Character: 6}},
		},
		{
			name:     "attribute name",
			place:    position.Place{Line: 1, Character: 8},
			contains: "embeddable content",
			want:     &position.PlaceRange{Start: position.Place{Line: 1, Character: 7}, End: position.Place{Line: 1, Character: 10}},
		},
		{
			name:     "outer element",
			place:    position.Place{Line: 0, Character: 1},
			contains: "generic container",
			want:     &position.PlaceRange{Start: position.Place{Line: 0, Character: 1}, End: position.Place{Line: 0, Character: 4}},
		},
		{
			name:  "text content",
			place: position.Place{Line: 2, Character: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := htmlOnly().Hover(context.Background(), open(t, src), tt.place)
			require.NoError(t, err)
			if tt.contains == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Contains(t, got.Contents, tt.contains)
			assert.Equal(t, virtual.SlotHTML, got.Slot)
			assert.Equal(t, tt.want, got.Range)
		})
	}
}

type stubProvider struct {
	info *hover.Info
	err  error
}

func (s stubProvider) Hover(context.Context, *virtual.DerivedDocument, int) (*hover.Info, error) {
	return s.info, s.err
}

func TestUnmappedRangeIsDropped(t *testing.T) {
	// generated offset 0 is the "<" the extractor wrote itself
	o := hover.NewOrchestrator(nil, map[string]hover.Provider{
		virtual.SlotHTML: stubProvider{info: &hover.Info{Contents: "x", Range: &position.Range{Start: 0, End: 1}}},
	})
	got, err := o.Hover(context.Background(), open(t, `<img src="a.png">`), position.Place{Line: 0, Character: 2})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHoverWithoutRange(t *testing.T) {
	o := hover.NewOrchestrator(nil, map[string]hover.Provider{
		virtual.SlotHTML: stubProvider{info: &hover.Info{Contents: "no range"}},
	})
	got, err := o.Hover(context.Background(), open(t, `<img src="a.png">`), position.Place{Line: 0, Character: 2})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "no range", got.Contents)
	assert.Nil(t, got.Range)
}

// scriptGenerator copies every text node so that text has a second derived document.
type scriptGenerator struct{}

func (scriptGenerator) Slot() string       { return virtual.SlotScript }
func (scriptGenerator) LanguageID() string { return "typescript" }

func (scriptGenerator) Generate(_ context.Context, parsed *parser.Parsed) (*sourcemap.Generated, error) {
	cg := sourcemap.NewCodegen(parsed.Code)
	parser.Walk(parsed.Program.Body, func(n parser.ChildNode) bool {
		if text, ok := n.(*parser.Text); ok {
			cg.Copy(text.Range).Write(";\n")
		}
		return true
	})
	return cg.End(), nil
}

func TestHoverRangeInAnotherSlot(t *testing.T) {
	src := "<p>hello</p>"
	reg := virtual.NewRegistry(scriptGenerator{})
	doc, err := reg.Open(context.Background(), testURI, 1, src)
	require.NoError(t, err)

	// the html provider answers with the span of "hello" in the script document, which starts at 0
	answer := stubProvider{info: &hover.Info{
		Contents: "greeting",
		Range:    &position.Range{Start: 0, End: 5},
		Document: virtual.DerivedID(testURI, virtual.SlotScript),
	}}
	o := hover.NewOrchestrator(reg, map[string]hover.Provider{virtual.SlotHTML: answer})

	got, err := o.Hover(context.Background(), doc, position.Place{Line: 0, Character: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, &position.PlaceRange{
		Start: position.Place{Line: 0, Character: 3},
		End:   position.Place{Line: 0, Character: 8},
	}, got.Range)

	t.Run("unknown document", func(t *testing.T) {
		answer.info.Document = virtual.DerivedID(testURI, "css")
		got, err := o.Hover(context.Background(), doc, position.Place{Line: 0, Character: 1})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("stale snapshot", func(t *testing.T) {
		answer.info.Document = virtual.DerivedID(testURI, virtual.SlotScript)
		_, err := reg.Open(context.Background(), testURI, 2, src)
		require.NoError(t, err)

		got, err := o.Hover(context.Background(), doc, position.Place{Line: 0, Character: 1})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestProviderError(t *testing.T) {
	boom := errors.New("boom")
	o := hover.NewOrchestrator(nil, map[string]hover.Provider{virtual.SlotHTML: stubProvider{err: boom}})
	_, err := o.Hover(context.Background(), open(t, `<img src="a.png">`), position.Place{Line: 0, Character: 2})
	assert.ErrorIs(t, err, boom)
}

func TestNoProviderForSlot(t *testing.T) {
	o := hover.NewOrchestrator(nil, nil)
	got, err := o.Hover(context.Background(), open(t, `<img src="a.png">`), position.Place{Line: 0, Character: 2})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPlaintext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "code span", in: "`<img>`", want: "<img>"},
		{name: "emphasis", in: "a **bold** word", want: "a bold word"},
		{name: "paragraphs", in: "one\n\ntwo", want: "one\n\ntwo"},
		{name: "link", in: "[MDN Reference](https://example.com/img)", want: "MDN Reference (https://example.com/img)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hover.Plaintext(tt.in))
		})
	}
}
