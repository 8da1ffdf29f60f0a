package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/serm-lab/admin-console/internal/http/ui/viewmodel"
)

type pagesOptions struct {
	Total    int
	Rows     int
	PageSize int
	Page     int
}

func parsePagesFlags(args []string) (pagesOptions, error) {
	fs := flag.NewFlagSet("pages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := pagesOptions{Total: -1, Rows: -1}
	fs.IntVar(&opts.Total, "total", -1, "Total number of pages")
	fs.IntVar(&opts.Rows, "rows", -1, "Total number of rows (alternative to --total)")
	fs.IntVar(&opts.PageSize, "page-size", viewmodel.DefaultPageSize, "Rows per page when --rows is given")
	fs.IntVar(&opts.Page, "page", 1, "Current page (1-based)")

	if err := fs.Parse(args); err != nil {
		return pagesOptions{}, err
	}
	switch {
	case opts.Total >= 0 && opts.Rows >= 0:
		return pagesOptions{}, errors.New("--total and --rows are mutually exclusive")
	case opts.Total < 0 && opts.Rows < 0:
		return pagesOptions{}, errors.New("--total or --rows is required")
	case opts.PageSize <= 0:
		return pagesOptions{}, errors.New("--page-size must be positive")
	}
	if opts.Rows >= 0 {
		opts.Total = viewmodel.PageCount(opts.Rows, opts.PageSize)
	}
	return opts, nil
}

func runPages(cmdCtx *commandContext, args []string) error {
	opts, err := parsePagesFlags(args)
	if err != nil {
		return err
	}
	return printPages(cmdCtx.Out, viewmodel.Window(opts.Total, opts.Page), opts.Page)
}

// printPages renders a window as "1 2 [3] 4 … 20", or a placeholder when
// the window does not warrant a pagination control.
func printPages(w io.Writer, pages []int, current int) error {
	if !viewmodel.ShouldRender(pages) {
		return writef(w, "(no pagination)\n")
	}
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		switch {
		case viewmodel.IsEllipsis(p):
			parts = append(parts, "…")
		case p == current:
			parts = append(parts, "["+strconv.Itoa(p)+"]")
		default:
			parts = append(parts, strconv.Itoa(p))
		}
	}
	if err := writef(w, "%s\n", strings.Join(parts, " ")); err != nil {
		return fmt.Errorf("write pages: %w", err)
	}
	return nil
}
