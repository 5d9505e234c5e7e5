package resolve

import (
	"context"
	"fmt"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/page"
	"github.com/use-agent/quizhook/tabular"
)

// Fetcher downloads a linked document. Implementations bound each download
// with their own timeout and fail on non-2xx responses.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Resources returns the strategy that downloads each linked PDF, delimited
// or spreadsheet document in anchor order and returns the sum of the first
// numeric column found. A resource that fails to download or parse is
// skipped and the next one is tried.
func Resources(fetcher Fetcher) Func {
	return func(ctx context.Context, snap *page.Snapshot) (answer.Value, bool) {
		if fetcher == nil {
			return answer.Value{}, false
		}
		logger := loggerFrom(ctx)

		for _, ref := range snap.LinkedResources() {
			if ctx.Err() != nil {
				return answer.Value{}, false
			}
			sum, ok, err := sumResource(ctx, fetcher, ref)
			if err != nil {
				logger.Debug("skipping resource", "url", ref.URL, "kind", string(ref.Kind), "error", err)
				continue
			}
			if ok {
				logger.Debug("numeric column found", "url", ref.URL, "sum", sum)
				return answer.Number(sum), true
			}
		}
		return answer.Value{}, false
	}
}

// sumResource downloads and reduces one resource. A panic inside a parser
// is reported as an error for this resource only.
func sumResource(ctx context.Context, fetcher Fetcher, ref page.ResourceRef) (sum float64, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			sum, ok, err = 0, false, fmt.Errorf("resolve: parser panic: %v", r)
		}
	}()

	body, err := fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return 0, false, err
	}

	switch ref.Kind {
	case page.KindPDF:
		tables, err := tabular.PDFTables(body)
		if err != nil {
			return 0, false, err
		}
		for g := range tables {
			if s, _, found := g.SumFirstNumericColumn(); found {
				return s, true, nil
			}
		}
		return 0, false, nil

	case page.KindDelimited:
		g, err := tabular.ParseDelimited(body, ref.Delimiter)
		if err != nil {
			return 0, false, err
		}
		s, _, found := g.SumFirstNumericColumn()
		return s, found, nil

	case page.KindSpreadsheet:
		g, err := tabular.ParseSpreadsheet(body)
		if err != nil {
			return 0, false, err
		}
		s, _, found := g.SumFirstNumericColumn()
		return s, found, nil

	default:
		return 0, false, fmt.Errorf("resolve: unsupported resource kind %q", ref.Kind)
	}
}
