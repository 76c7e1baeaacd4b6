package diagnostic_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/a11y"
	"github.com/walteh/markols/pkg/diagnostic"
	"github.com/walteh/markols/pkg/position"
	"github.com/walteh/markols/pkg/virtual"
	"golang.org/x/net/html"
)

func open(t *testing.T, src string) *virtual.Document {
	t.Helper()
	doc, err := virtual.NewRegistry().Open(context.Background(), "file:///test.marko", 1, src)
	require.NoError(t, err)
	return doc
}

func TestAccessibilityDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		sources []string
	}{
		{
			name:    "missing alt is reported",
			src:     `<img src="a.png">`,
			sources: []string{"a11y(image-alt)"},
		},
		{
			name: "spread attributes suppress image-alt",
			src:  `<img src="a.png" ...attrs>`,
		},
		{
			name: "dynamic body suppresses button-name",
			src:  `<button><my-icon/></button>`,
		},
		{
			name:    "static empty body is still reported",
			src:     `<button></button>`,
			sources: []string{"a11y(button-name)"},
		},
		{
			name: "dynamic attribute named by the exception suppresses",
			src:  `<input type=kind>`,
		},
		{
			name:    "dynamic attribute not named by the exception does not suppress",
			src:     `<input type="text" name=field>`,
			sources: []string{"a11y(label)"},
		},
		{
			name:    "elements inside custom tags are still checked",
			src:     `<my-card><img src="a.png"></my-card>`,
			sources: []string{"a11y(image-alt)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(), nil)
			diags, err := o.Diagnose(context.Background(), open(t, tt.src))
			require.NoError(t, err)

			var got []string
			for _, d := range diags {
				got = append(got, d.Source)
				assert.Equal(t, diagnostic.SeverityInformation, d.Severity)
			}
			assert.Equal(t, tt.sources, got)
		})
	}
}

func TestAccessibilityRangeIsInRootCoordinates(t *testing.T) {
	src := "<div>\n  <p>${text}</p>\n  <img src=\"a.png\">\n</div>"
	o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(), nil)
	diags, err := o.Diagnose(context.Background(), open(t, src))
	require.NoError(t, err)
	require.Len(t, diags, 1)

	assert.Equal(t, position.PlaceRange{
		Start: position.Place{Line: 2, Character: 3},
		End:   position.Place{Line: 2, Character: 6},
	}, diags[0].Range)
	assert.Equal(t, "img", src[diags[0].Offsets.Start:diags[0].Offsets.End])
}

func TestParseErrorDiagnostics(t *testing.T) {
	o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(), nil)
	diags, err := o.Diagnose(context.Background(), open(t, "<div>\n<span>x</div>"))
	require.NoError(t, err)
	require.NotEmpty(t, diags)

	assert.Equal(t, diagnostic.SeverityError, diags[0].Severity)
	assert.Equal(t, "marko", diags[0].Source)
	assert.Equal(t, "missing closing tag for <span>", diags[0].Message)
}

func TestCustomExceptions(t *testing.T) {
	o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(), map[string]a11y.Exception{})
	diags, err := o.Diagnose(context.Background(), open(t, `<img src="a.png" ...attrs>`))
	require.NoError(t, err)
	require.Len(t, diags, 1, "no exceptions means no suppression")

	o.SetExceptions(nil)
	diags, err = o.Diagnose(context.Background(), open(t, `<img src="a.png" ...attrs>`))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCancelledBeforeLock(t *testing.T) {
	analyzer := a11y.NewAnalyzer()
	o := diagnostic.NewOrchestrator(analyzer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	diags, err := o.Diagnose(ctx, open(t, `<img src="a.png">`))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, int64(0), analyzer.Runs(), "the analyzer lock was never taken")

	diags, err = o.Accessibility(ctx, open(t, `<img src="a.png">`))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, int64(0), analyzer.Runs())
}

func TestConcurrentDocumentsDoNotInterleave(t *testing.T) {
	var active, peak atomic.Int32
	guard := a11y.Rule{
		ID: "guard",
		Check: func(*html.Node, *a11y.Index) string {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			return ""
		},
	}
	o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(a11y.WithRules(guard)), nil)

	reg := virtual.NewRegistry()
	a, err := reg.Open(context.Background(), "file:///a.marko", 1, "<p>a</p><p>b</p>")
	require.NoError(t, err)
	b, err := reg.Open(context.Background(), "file:///b.marko", 1, "<ul><li>x</li></ul>")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := a
			if i%2 == 1 {
				doc = b
			}
			_, err := o.Diagnose(context.Background(), doc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
}

func TestAnalyzerFailureIsReturned(t *testing.T) {
	boom := a11y.Rule{
		ID: "boom",
		Check: func(*html.Node, *a11y.Index) string {
			panic("bad rule")
		},
	}
	o := diagnostic.NewOrchestrator(a11y.NewAnalyzer(a11y.WithRules(boom)), nil)
	_, err := o.Diagnose(context.Background(), open(t, "<p>x</p>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad rule")
}
