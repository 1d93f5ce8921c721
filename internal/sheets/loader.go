package sheets

import (
	"context"
	"errors"
	"fmt"

	"animaldash/internal/core"
)

// Load fetches the observation range once and decodes it into a Table.
// A source holding only the header, or nothing at all, yields an empty
// table. Fetch failures are returned wrapped in core.ErrAuthentication or
// core.ErrSourceUnavailable.
func Load(ctx context.Context, f RangeFetcher, src Source) (core.Table, error) {
	if f == nil {
		return core.Table{}, fmt.Errorf("%w: no fetcher configured", core.ErrSourceUnavailable)
	}
	raw, err := f.FetchRange(ctx, src.SpreadsheetID, src.SheetName, src.rangeSpec())
	if err != nil {
		if errors.Is(err, core.ErrAuthentication) || errors.Is(err, core.ErrSourceUnavailable) {
			return core.Table{}, err
		}
		return core.Table{}, fmt.Errorf("%w: read %s: %w", core.ErrSourceUnavailable, src.A1(), err)
	}
	return core.DecodeTable(raw), nil
}
