package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/fxgest/internal/extract"
	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// DocumentExtractor is the per-document collaborator of the aggregator.
type DocumentExtractor interface {
	Extract(ctx context.Context, URL string) extract.Result
}

// Recorder receives document and company results as they happen.
type Recorder interface {
	RecordDocument(ctx context.Context, runID, ticker string, res extract.Result) error
	RecordCompany(ctx context.Context, runID string, o CompanyOutcome) error
}

// Settings locate the filing and output trees.
type Settings struct {
	InputRoot   string
	OutputRoot  string
	Extensions  []string
	ReadRetries int
}

// Aggregator builds one company's corpus from every document in its
// directory and persists it once.
type Aggregator struct {
	fs        afs.Service
	extractor DocumentExtractor
	recorder  Recorder
	log       *slog.Logger

	input, output string
	extensions    map[string]bool
	readRetries   int
	backoff       func(attempt int) time.Duration

	claims *claimSet
}

func NewAggregator(fs afs.Service, extractor DocumentExtractor, recorder Recorder, s Settings, log *slog.Logger) (*Aggregator, error) {
	input, err := normalizeLocation(s.InputRoot)
	if err != nil {
		return nil, err
	}
	output, err := normalizeLocation(s.OutputRoot)
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(s.Extensions))
	for _, e := range s.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Aggregator{
		fs:          fs,
		extractor:   extractor,
		recorder:    recorder,
		log:         log,
		input:       input,
		output:      output,
		extensions:  exts,
		readRetries: s.ReadRetries,
		backoff:     Backoff,
		claims:      newClaimSet(),
	}, nil
}

// normalizeLocation turns relative and absolute OS paths into file URLs and
// leaves other afs URLs alone.
func normalizeLocation(location string) (string, error) {
	norm := location
	if url.Scheme(norm, "") == "" && url.IsRelative(norm) {
		abs, err := filepath.Abs(norm)
		if err != nil {
			return "", fmt.Errorf("absolute path for %s: %w", location, err)
		}
		norm = abs
	}
	if url.Scheme(norm, "") == "" {
		norm = url.ToFileURL(norm)
	}
	return strings.TrimRight(norm, "/"), nil
}

// OutputDir is the idempotency marker for a company.
func (a *Aggregator) OutputDir(ticker string) string {
	return url.Join(a.output, ticker)
}

// Companies lists the company directories under the input root, sorted.
func (a *Aggregator) Companies(ctx context.Context) ([]string, error) {
	return a.listDirs(ctx, a.input)
}

// PersistedCompanies lists company directories under the output root.
func (a *Aggregator) PersistedCompanies(ctx context.Context) ([]string, error) {
	if ok, _ := a.fs.Exists(ctx, a.output); !ok {
		return []string{}, nil
	}
	return a.listDirs(ctx, a.output)
}

// Artifact returns the URL of the persisted corpus for ticker.
func (a *Aggregator) Artifact(ctx context.Context, ticker string) (string, error) {
	dir := a.OutputDir(ticker)
	if ok, _ := a.fs.Exists(ctx, dir); !ok {
		return "", fmt.Errorf("%w: no output for %s", internalerr.ErrNotFound, ticker)
	}
	objects, err := a.fs.List(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, o := range objects {
		if !o.IsDir() && strings.HasSuffix(o.Name(), artifactSuffix) {
			names = append(names, o.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no artifact for %s", internalerr.ErrNotFound, ticker)
	}
	sort.Strings(names)
	return url.Join(dir, names[len(names)-1]), nil
}

func (a *Aggregator) listDirs(ctx context.Context, root string) ([]string, error) {
	objects, err := a.fs.List(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var dirs []string
	for _, o := range objects {
		if !o.IsDir() || isSelf(o.URL(), root) || strings.HasPrefix(o.Name(), ".") {
			continue
		}
		dirs = append(dirs, o.Name())
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Documents recursively lists the documents of a company in lexical path
// order, keeping only configured extensions.
func (a *Aggregator) Documents(ctx context.Context, ticker string) ([]string, error) {
	var docs []string
	if err := a.collect(ctx, url.Join(a.input, ticker), &docs); err != nil {
		return nil, err
	}
	sort.Strings(docs)
	return docs, nil
}

func (a *Aggregator) collect(ctx context.Context, dir string, docs *[]string) error {
	objects, err := a.fs.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	for _, o := range objects {
		if isSelf(o.URL(), dir) {
			continue
		}
		if o.IsDir() {
			if err := a.collect(ctx, url.Join(dir, o.Name()), docs); err != nil {
				return err
			}
			continue
		}
		if a.extensions[strings.ToLower(filepath.Ext(o.Name()))] {
			*docs = append(*docs, url.Join(dir, o.Name()))
		}
	}
	return nil
}

func isSelf(objectURL, dir string) bool {
	return url.Equals(url.Path(objectURL), url.Path(dir))
}

// Aggregate runs one company through skip check, extraction, dedup and
// persistence. It never returns an error: every failure ends up in the
// outcome.
func (a *Aggregator) Aggregate(ctx context.Context, runID, ticker string) CompanyOutcome {
	log := a.log.With("run_id", runID, "ticker", ticker)
	out := CompanyOutcome{Ticker: ticker, Status: CompanyPending}

	if !pathSafe(ticker) {
		log.Error("ticker is not a directory name")
		out.Status, out.Reason = CompanyFailed, "invalid ticker"
		return out
	}
	if !a.claims.claim(ticker) {
		log.Info("company claimed by another run, skipping")
		out.Status, out.Reason = CompanySkipped, "in progress elsewhere"
		return out
	}
	defer a.claims.release(ticker)

	outDir := a.OutputDir(ticker)
	exists, err := a.fs.Exists(ctx, outDir)
	if err != nil {
		log.Error("check output dir", "error", err)
		out.Status, out.Reason = CompanyFailed, err.Error()
		return out
	}
	if exists {
		log.Info("output exists, skipping", "output", outDir)
		out.Status, out.Reason = CompanySkipped, "already processed"
		return out
	}

	out.Status = CompanyProcessing
	docs, err := a.Documents(ctx, ticker)
	if err != nil {
		log.Error("enumerate documents", "error", err)
		out.Status, out.Reason = CompanyFailed, err.Error()
		return out
	}
	log.Info("processing company", "documents", len(docs))

	blobs := NewBlobSet()
	var company, year string
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			log.Info("run cancelled mid-company", "processed", out.Documents)
			out.Status, out.Reason = CompanyCancelled, err.Error()
			return out
		}

		res := a.extractWithRetry(ctx, log, doc)
		out.Documents++
		if a.recorder != nil {
			if err := a.recorder.RecordDocument(context.WithoutCancel(ctx), runID, ticker, res); err != nil {
				log.Warn("ledger document write failed", "error", err)
			}
		}
		if res.Err != nil {
			out.Failed++
			continue
		}
		company, year = res.Company, res.Year
		if res.Text != "" {
			blobs.Add(res.Text)
		}
	}

	out.Company, out.Year, out.Unique = company, year, blobs.Len()
	if blobs.Len() == 0 {
		log.Info("no relevant content", "documents", out.Documents, "failed", out.Failed)
		out.Status = CompanyNoContent
		return out
	}

	artifact, err := a.persist(ctx, ticker, company, year, blobs.Join())
	if err != nil {
		log.Error("persist corpus", "error", err)
		out.Status, out.Reason = CompanyFailed, err.Error()
		return out
	}
	log.Info("saved corpus", "artifact", artifact, "unique_blobs", blobs.Len())
	out.Status, out.Artifact = CompanyPersisted, artifact
	return out
}

// extractWithRetry retries transient read failures. A document that no
// longer exists is not retried.
func (a *Aggregator) extractWithRetry(ctx context.Context, log *slog.Logger, doc string) extract.Result {
	var res extract.Result
	for attempt := 0; ; attempt++ {
		res = a.extractor.Extract(ctx, doc)
		if res.Err == nil || attempt >= a.readRetries || !IsRetryable(res.Err) {
			return res
		}
		if ok, _ := a.fs.Exists(ctx, doc); !ok {
			res.Err = errors.Join(res.Err, internalerr.ErrNotFound)
			return res
		}
		log.Warn("retryable read error", "path", doc, "attempt", attempt, "error", res.Err)
		select {
		case <-time.After(a.backoff(attempt)):
		case <-ctx.Done():
			return res
		}
	}
}

const artifactSuffix = "_fx_risk_text.txt"

// ArtifactName builds "<company>_<year>_fx_risk_text.txt".
func ArtifactName(company, year string) string {
	return sanitizeFilename(company) + "_" + sanitizeFilename(year) + artifactSuffix
}

// stagingDir is where a company's output is assembled before it is moved
// into place. The output directory is the idempotency marker, so it must
// only appear once the artifact is complete.
func (a *Aggregator) stagingDir(ticker string) string {
	return url.Join(a.output, stagingPrefix+ticker)
}

const stagingPrefix = ".staging-"

func (a *Aggregator) persist(ctx context.Context, ticker, company, year, text string) (string, error) {
	staging := a.stagingDir(ticker)
	if ok, _ := a.fs.Exists(ctx, staging); ok {
		if err := a.fs.Delete(ctx, staging); err != nil {
			return "", fmt.Errorf("clear %s: %w", staging, err)
		}
	}
	if err := a.fs.Create(ctx, staging, file.DefaultDirOsMode, true); err != nil {
		return "", fmt.Errorf("create %s: %w", staging, err)
	}

	name := ArtifactName(company, year)
	if err := a.fs.Upload(ctx, url.Join(staging, name), file.DefaultFileOsMode, strings.NewReader(text)); err != nil {
		_ = a.fs.Delete(ctx, staging)
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	outDir := a.OutputDir(ticker)
	if err := a.fs.Move(ctx, staging, outDir); err != nil {
		_ = a.fs.Delete(ctx, staging)
		return "", fmt.Errorf("move %s into place: %w", outDir, err)
	}
	return url.Join(outDir, name), nil
}

// sanitizeFilename keeps a name inside its directory.
func sanitizeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", "\x00", "_")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" {
		return "unnamed"
	}
	return name
}

// claimSet gives one run at a time exclusive use of a ticker.
type claimSet struct {
	mu     sync.Mutex
	active map[string]bool
}

func newClaimSet() *claimSet {
	return &claimSet{active: make(map[string]bool)}
}

func (c *claimSet) claim(ticker string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[ticker] {
		return false
	}
	c.active[ticker] = true
	return true
}

func (c *claimSet) release(ticker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, ticker)
}
