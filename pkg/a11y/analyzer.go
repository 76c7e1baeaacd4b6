// Package a11y evaluates accessibility rules against derived HTML.
package a11y

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/markols/pkg/extract"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
)

// Violation is one element failing one rule.
type Violation struct {
	RuleID  string
	NodeID  string
	TagName string
	Attrs   map[string]string
	Message string
}

// Analyzer parses derived HTML into a DOM index it reuses between runs. Runs are serialized process-wide
// through a weight-1 semaphore; waiting for it honors context cancellation.
type Analyzer struct {
	sem   *semaphore.Weighted
	index *Index
	rules []Rule
	runs  atomic.Int64

	disabled atomic.Pointer[map[string]bool]
}

type Option func(*Analyzer)

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(a *Analyzer) {
		a.rules = rules
	}
}

// WithDisabled turns rules off by id.
func WithDisabled(ids ...string) Option {
	return func(a *Analyzer) {
		a.SetDisabled(ids...)
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		sem:   semaphore.NewWeighted(1),
		index: newIndex(),
		rules: DefaultRules(),
	}
	a.SetDisabled()
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetDisabled replaces the set of rules that are turned off. Runs already in progress keep the old set.
func (a *Analyzer) SetDisabled(ids ...string) {
	disabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		disabled[id] = true
	}
	a.disabled.Store(&disabled)
}

// Runs counts how many times the analyzer has been entered.
func (a *Analyzer) Runs() int64 {
	return a.runs.Load()
}

// acquire waits for exclusive use of the analyzer. The returned release is idempotent.
func (a *Analyzer) acquire(ctx context.Context) (func(), error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { a.sem.Release(1) })
	}, nil
}

// Run evaluates every enabled rule against doc. Only elements carrying a node id are checked; everything
// else was synthesized by the HTML parser.
func (a *Analyzer) Run(ctx context.Context, doc string) (violations []Violation, err error) {
	release, err := a.acquire(ctx)
	if err != nil {
		return nil, errors.Errorf("waiting for analyzer: %w", err)
	}
	defer release()
	defer func() {
		if r := recover(); r != nil {
			violations = nil
			err = errors.Errorf("analyzer panicked: %v", r)
		}
	}()

	a.runs.Add(1)

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, errors.Errorf("parsing derived html: %w", err)
	}
	a.index.load(root)

	disabled := *a.disabled.Load()
	for _, rule := range a.rules {
		if disabled[rule.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("running %s: %w", rule.ID, err)
		}
		for _, el := range a.index.elements {
			id, ok := attr(el, extract.NodeIDAttr)
			if !ok {
				continue
			}
			msg := rule.Check(el, a.index)
			if msg == "" {
				continue
			}
			violations = append(violations, Violation{
				RuleID:  rule.ID,
				NodeID:  id,
				TagName: el.Data,
				Attrs:   attrMap(el),
				Message: msg,
			})
		}
	}

	// node ids count up in document order
	slices.SortStableFunc(violations, func(x, y Violation) int {
		return cmp.Compare(nodeOrder(x.NodeID), nodeOrder(y.NodeID))
	})

	zerolog.Ctx(ctx).Debug().Int("violations", len(violations)).Int("elements", len(a.index.elements)).Msg("accessibility pass finished")

	return violations, nil
}

func nodeOrder(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return -1
	}
	return n
}

// Index is the element index built from one parsed document. Rules read it; only the analyzer writes it.
type Index struct {
	elements []*html.Node
	byID     map[string]*html.Node
	labelFor map[string]bool
}

func newIndex() *Index {
	return &Index{
		byID:     map[string]*html.Node{},
		labelFor: map[string]bool{},
	}
}

func (ix *Index) load(root *html.Node) {
	ix.elements = ix.elements[:0]
	clear(ix.byID)
	clear(ix.labelFor)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			ix.elements = append(ix.elements, n)
			if id, ok := attr(n, "id"); ok && id != "" {
				if _, dup := ix.byID[id]; !dup {
					ix.byID[id] = n
				}
			}
			if n.Data == "label" {
				if f, ok := attr(n, "for"); ok && f != "" {
					ix.labelFor[f] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// ByID returns the first element with the given id attribute.
func (ix *Index) ByID(id string) *html.Node {
	return ix.byID[id]
}

// Labelled reports whether a label element targets id through its for attribute.
func (ix *Index) Labelled(id string) bool {
	return ix.labelFor[id]
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
