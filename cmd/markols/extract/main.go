package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/markols/pkg/extract"
	"github.com/walteh/markols/pkg/parser"
	"github.com/walteh/markols/pkg/sourcemap"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	file      string
	sourcemap bool

	fs  afero.Fs
	out io.Writer
}

func NewExtractCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs(), out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "print the html derived from a marko template",
	}

	cmd.Flags().BoolVar(&me.sourcemap, "sourcemap", false, "print json with the html, its mapping segments and a v3 source map")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		return me.Run(cmd.Context())
	}

	return cmd
}

type output struct {
	HTML        string                        `json:"html"`
	Segments    []sourcemap.Segment           `json:"segments"`
	NodeDetails map[string]extract.NodeDetail `json:"nodeDetails"`
	SourceMap   json.RawMessage               `json:"sourceMap"`
}

func (me *Handler) Run(ctx context.Context) error {
	data, err := afero.ReadFile(me.fs, me.file)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.file, err)
	}

	parsed := parser.Parse(me.file, string(data))
	for _, e := range parsed.Errors {
		zerolog.Ctx(ctx).Warn().Str("file", me.file).Stringer("range", e.Range).Msg(e.Message)
	}

	html := extract.HTML(parsed)
	if !me.sourcemap {
		if _, err := fmt.Fprintln(me.out, html.Code); err != nil {
			return errors.Errorf("writing html: %w", err)
		}
		return nil
	}

	name := filepath.Base(me.file)
	sm, err := html.SourceMap(name+".html", name)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(me.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		HTML:        html.Code,
		Segments:    html.Segments(),
		NodeDetails: html.NodeDetails,
		SourceMap:   sm,
	}); err != nil {
		return errors.Errorf("encoding extraction of %s: %w", me.file, err)
	}
	return nil
}
