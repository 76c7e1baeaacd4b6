package check

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/markols/pkg/a11y"
	"github.com/walteh/markols/pkg/config"
	"github.com/walteh/markols/pkg/diagnostic"
	"github.com/walteh/markols/pkg/finder"
	"github.com/walteh/markols/pkg/report"
	"github.com/walteh/markols/pkg/virtual"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/uri"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrProblemsFound is returned when any checked template has a diagnostic.
var ErrProblemsFound = errors.New("problems found")

type Handler struct {
	dir        string
	configPath string
	jobs       int
	format     string
	color      string

	fs  afero.Fs
	out io.Writer
}

func NewCheckCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs(), out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "check [pattern...]",
		Short: "report syntax and accessibility problems in marko templates",
		Long: "check reports syntax and accessibility problems in every template matching the doublestar patterns, " +
			"relative to --dir. Without patterns, check.include from the config file is used.",
	}

	cmd.Flags().StringVar(&me.dir, "dir", ".", "directory the patterns are relative to")
	cmd.Flags().StringVar(&me.configPath, "config", "", "config file (default: .markols.yaml found from --dir)")
	cmd.Flags().IntVar(&me.jobs, "jobs", runtime.NumCPU(), "templates checked at once")
	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&me.color, "color", "auto", "color output: auto, always or never")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args...)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, patterns ...string) error {
	logger := zerolog.Ctx(ctx)

	format, err := report.ParseFormat(me.format)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(me.dir)
	if err != nil {
		return errors.Errorf("resolving %s: %w", me.dir, err)
	}

	cfg, err := me.loadConfig(root)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		patterns = cfg.Check.Include
	}

	paths, err := finder.Find(me.fs, root, patterns...)
	if err != nil {
		return err
	}
	logger.Debug().Str("root", root).Strs("patterns", patterns).Int("files", len(paths)).Msg("checking templates")

	analyzer := a11y.NewAnalyzer(a11y.WithDisabled(cfg.A11y.Disabled...))
	diagnostics := diagnostic.NewOrchestrator(analyzer, cfg.Exceptions())
	registry := virtual.NewRegistry()

	files := make([]report.File, len(paths))
	var (
		mu     sync.Mutex
		failed error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(me.jobs, 1))
	for i, p := range paths {
		g.Go(func() error {
			f, err := me.checkFile(gctx, registry, diagnostics, root, p)
			if err != nil {
				mu.Lock()
				failed = multierr.Append(failed, err)
				mu.Unlock()
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	styles := report.NewStyles(report.ColorEnabled(me.color, me.out))
	if err := report.Write(me.out, format, files, styles); err != nil {
		return err
	}

	if failed != nil {
		return errors.Errorf("checking templates: %w", failed)
	}
	for _, f := range files {
		if len(f.Diagnostics) > 0 {
			return ErrProblemsFound
		}
	}
	return nil
}

func (me *Handler) loadConfig(root string) (*config.Config, error) {
	path := me.configPath
	if path == "" {
		found, ok := config.Find(me.fs, root)
		if !ok {
			return config.Default(), nil
		}
		path = found
	}
	return config.Load(me.fs, path)
}

func (me *Handler) checkFile(ctx context.Context, registry *virtual.Registry, diagnostics *diagnostic.Orchestrator, root, rel string) (report.File, error) {
	f := report.File{Path: rel}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	data, err := afero.ReadFile(me.fs, abs)
	if err != nil {
		return f, errors.Errorf("reading %s: %w", rel, err)
	}
	f.Source = string(data)

	docURI := string(uri.File(abs))
	defer registry.Close(docURI)

	doc, err := registry.Open(ctx, docURI, 0, f.Source)
	if err != nil {
		return f, errors.Errorf("opening %s: %w", rel, err)
	}

	diags, err := diagnostics.Diagnose(ctx, doc)
	if err != nil {
		return f, errors.Errorf("diagnosing %s: %w", rel, err)
	}
	f.Diagnostics = diags
	return f, nil
}
