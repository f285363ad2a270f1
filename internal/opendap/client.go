package opendap

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/model"
)

// Client fetches and memoizes OPeNDAP datasets, and issues hyperslab data
// requests against them, per spec.md §4.6.
type Client struct {
	fetcher *fetcher.Fetcher
	log     *slog.Logger

	mu    sync.Mutex
	memo  *lru.Cache[string, *Dataset]
}

// New builds a Client whose dataset memo holds up to memoSize entries
// (process-lifetime unless evicted), per spec.md §4.6's "Memoize by URL"
// and SPEC_FULL.md §7's LRU-backed commit-then-expose discipline.
func New(f *fetcher.Fetcher, memoSize int, log *slog.Logger) *Client {
	if memoSize <= 0 {
		memoSize = 256
	}
	c, _ := lru.New[string, *Dataset](memoSize)
	if log == nil {
		log = slog.Default()
	}
	return &Client{fetcher: f, log: log, memo: c}
}

// GetOpendapDataset fetches and builds the dataset tree for url, per
// spec.md §4.6. Returns (nil, nil) on any soft failure (empty .dds/.das,
// network error, parse error) — logged, not propagated.
func (c *Client) GetOpendapDataset(ctx context.Context, rawURL string) (*Dataset, error) {
	base, selection := stripProjection(rawURL)

	c.mu.Lock()
	if ds, ok := c.memo.Get(rawURL); ok {
		c.mu.Unlock()
		return ds, nil
	}
	c.mu.Unlock()

	var ddsBody, dasBody []byte
	var ddsErr, dasErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp, err := c.fetcher.Get(ctx, base+".dds")
		if err != nil {
			ddsErr = err
			return
		}
		if resp != nil {
			ddsBody = resp.Body
		}
	}()
	go func() {
		defer wg.Done()
		resp, err := c.fetcher.Get(ctx, base+".das")
		if err != nil {
			dasErr = err
			return
		}
		if resp != nil {
			dasBody = resp.Body
		}
	}()
	wg.Wait()

	if ddsErr != nil || dasErr != nil || len(ddsBody) == 0 || len(dasBody) == 0 {
		c.log.Warn("opendap: could not open dataset", "url", rawURL, "dds_err", ddsErr, "das_err", dasErr)
		return nil, nil
	}

	ds, err := ParseDDS(string(ddsBody))
	if err != nil {
		c.log.Warn("opendap: dds parse failed", "url", rawURL, "err", err)
		return nil, nil
	}
	das, err := ParseDAS(cleanDAS(string(dasBody)))
	if err != nil {
		c.log.Warn("opendap: das parse failed", "url", rawURL, "err", err)
		return nil, nil
	}
	ApplyDAS(ds, das)

	ds.BaseURL = base
	ds.Selection = selection
	installProxies(ds, base)
	if selection != "" {
		applyURLProjection(ds, selection)
	}

	c.mu.Lock()
	c.memo.Add(rawURL, ds)
	c.mu.Unlock()
	return ds, nil
}

// cleanDAS drops the sentinel infinity lines some CCI servers emit,
// which no JSON/Go numeric parser accepts, mirroring the original's
// targeted string replace before handing the DAS to its parser.
func cleanDAS(s string) string {
	s = strings.ReplaceAll(s, "Float32 valid_min -Infinity;\n", "")
	s = strings.ReplaceAll(s, "Float32 valid_max Infinity;\n", "")
	return s
}

// installProxies walks ds and attaches a BaseProxy/SequenceProxy to
// every leaf, per spec.md §4.6 (grids are marked output-main-only by
// parseGrid, not here).
func installProxies(ds *Dataset, base string) {
	for _, name := range ds.Order {
		v := ds.Variables[name]
		installProxyOn(v, base)
	}
}

func installProxyOn(v *Variable, base string) {
	switch v.Kind {
	case KindGrid:
		v.Array.Proxy = NewBaseProxy(base, v.Array.Name, v.Array.DataType, v.Array.Shape)
		v.Proxy = v.Array.Proxy
		for _, m := range v.Maps {
			m.Proxy = NewBaseProxy(base, m.Name, m.DataType, m.Shape)
		}
	case KindSequence:
		v.Proxy = NewSequenceProxy(base, v)
	default:
		v.Proxy = NewBaseProxy(base, v.Name, v.DataType, v.Shape)
	}
}

// applyURLProjection applies a projection carried by the original URL:
// descend the variable tree, set the proxy's slice for base types,
// descend into grids (constraining both the array and its map axes by
// the same slice), per spec.md §4.6.
func applyURLProjection(ds *Dataset, selection string) {
	for _, clause := range strings.Split(selection, "&") {
		name, slices, ok := parseProjectionClause(clause)
		if !ok {
			continue
		}
		v, ok := ds.Variables[name]
		if !ok {
			continue
		}
		switch v.Kind {
		case KindGrid:
			fixed := FixSlice(slices, v.Array.Shape)
			v.Array.Proxy.SetSlice(fixed)
			for _, m := range v.Maps {
				for i, dim := range v.Array.Dims {
					if len(m.Dims) == 1 && m.Dims[0] == dim && i < len(fixed) {
						m.Proxy.SetSlice([]Slice{fixed[i]})
					}
				}
			}
		default:
			if v.Proxy != nil {
				v.Proxy.SetSlice(FixSlice(slices, v.Shape))
			}
		}
	}
}

// parseProjectionClause parses "name[1:1:10][0:1:5]" into its variable
// name and per-dimension slices.
func parseProjectionClause(clause string) (string, []Slice, bool) {
	i := strings.IndexByte(clause, '[')
	if i < 0 {
		return clause, nil, clause != ""
	}
	name := clause[:i]
	var slices []Slice
	rest := clause[i:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		body := rest[1:end]
		slices = append(slices, parseSliceExpr(body))
		rest = rest[end+1:]
	}
	return name, slices, true
}

func parseSliceExpr(body string) Slice {
	parts := strings.Split(body, ":")
	atoi := func(s string) int {
		n := 0
		neg := false
		for i, r := range s {
			if i == 0 && r == '-' {
				neg = true
				continue
			}
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		if neg {
			n = -n
		}
		return n
	}
	switch len(parts) {
	case 1:
		v := atoi(parts[0])
		return Slice{Start: v, Stop: v + 1, Stride: 1}
	case 2:
		return Slice{Start: atoi(parts[0]), Stop: atoi(parts[1]) + 1, Stride: 1}
	case 3:
		return Slice{Start: atoi(parts[0]), Stop: atoi(parts[2]) + 1, Stride: atoi(parts[1])}
	default:
		return Slice{}
	}
}

// GetDataFromDataset composes the effective slice, issues a hyperslab
// .dods request, and unpacks the returned payload for varName, per
// spec.md §4.6. Returns (nil, nil) on network failure or malformed
// unpacking. canonical is the schema assembler's (possibly promoted)
// VariableInfo.DataType; the decoded block is widened to it per spec.md
// §4.8 step 4 before returning, so callers never see the raw on-disk
// width of a promoted variable.
func (c *Client) GetDataFromDataset(ctx context.Context, ds *Dataset, varName string, slices []Slice, canonical model.DataType) ([]byte, error) {
	v, ok := ds.Variables[varName]
	if !ok {
		return nil, nil
	}
	target := v
	if v.Kind == KindGrid {
		target = v.Array
	}
	if target.Proxy == nil {
		return nil, nil
	}

	effective := CombineSlices(target.Proxy.Slice(), slices, target.Shape)
	count := 1
	for _, s := range effective {
		count *= (s.Stop - s.Start)
		if s.Stride > 1 {
			count = (count + s.Stride - 1) / s.Stride
		}
	}

	query := ds.BaseURL + ".dods?" + QuoteVarID(target.Proxy.VarID()) + Hyperslab(effective)
	if ds.Selection != "" {
		query += "&" + ds.Selection
	}

	resp, err := c.fetcher.Get(ctx, query)
	if err != nil || resp == nil {
		return nil, nil
	}

	idx := indexOfDataMarker(resp.Body)
	if idx < 0 {
		return nil, nil
	}
	ddsPart := string(resp.Body[:idx])
	dataPart := resp.Body[idx+len(dataMarker):]

	freshDS, err := ParseDDS(ddsPart)
	if err != nil {
		return nil, nil
	}
	freshVar, ok := freshDS.Variables[varName]
	if !ok {
		return nil, nil
	}
	freshTarget := freshVar
	if freshVar.Kind == KindGrid {
		freshTarget = freshVar.Array
	}

	elemCount := 1
	for _, n := range freshTarget.Shape {
		elemCount *= n
	}
	if elemCount == 0 {
		elemCount = count
	}

	decoded, err := DecodeNumericArray(dataPart, target.DataType, elemCount)
	if err != nil {
		return nil, nil
	}
	if canonical == "" {
		return decoded, nil
	}
	widened, err := WidenToCanonical(decoded, target.DataType, canonical, elemCount)
	if err != nil {
		return nil, nil
	}
	return widened, nil
}

const dataMarker = "\nData:\n"

func indexOfDataMarker(body []byte) int {
	return strings.Index(string(body), dataMarker)
}
