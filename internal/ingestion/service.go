package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/salesingest/internal/domain"
	"github.com/rpattn/salesingest/internal/repository"
)

// Fetcher populates the local data directory before a run.
type Fetcher interface {
	Fetch(ctx context.Context, dir string) ([]string, error)
}

// Service drives ingestion runs: fetch, list, snapshot the ledger, then process or skip
// each local file in name order.
type Service struct {
	ledger    repository.LedgerRepository
	sink      repository.TableSink
	fetcher   Fetcher
	dataDir   string
	tableName string
	columns   RevenueColumns
	logger    *slog.Logger
	now       func() time.Time

	running sync.Mutex
}

type Option func(*Service)

// WithFetcher sets the step that fills the data directory before listing.
func WithFetcher(fetcher Fetcher) Option {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

func WithRevenueColumns(cols RevenueColumns) Option {
	return func(s *Service) {
		if cols.Quantity != "" && cols.UnitPrice != "" {
			s.columns = cols
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the ingestion driver.
func NewService(
	ledger repository.LedgerRepository,
	sink repository.TableSink,
	dataDir string,
	tableName string,
	opts ...Option,
) *Service {
	s := &Service{
		ledger:    ledger,
		sink:      sink,
		dataDir:   dataDir,
		tableName: tableName,
		columns:   DefaultRevenueColumns(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOptions tweaks a single run.
type RunOptions struct {
	SkipFetch bool
}

// Run executes one ingestion run. Only a fetch failure, an unreadable data directory or
// an unavailable ledger abort the run; every per-file problem becomes a FAILED entry.
func (s *Service) Run(ctx context.Context, opts RunOptions) (domain.IngestionLog, error) {
	if !s.running.TryLock() {
		return domain.IngestionLog{}, domain.ErrRunInProgress
	}
	defer s.running.Unlock()

	runLog := domain.NewIngestionLog(s.now())
	logger := s.logger.With("run_id", runLog.RunID.String())

	if err := s.prepare(ctx, opts, logger); err != nil {
		CounterRuns.WithLabelValues("aborted").Inc()
		logger.Error("ingestion run aborted", "error", err)
		return runLog, err
	}

	files, err := ListSourceFiles(s.dataDir)
	if err != nil {
		CounterRuns.WithLabelValues("aborted").Inc()
		logger.Error("ingestion run aborted", "error", err)
		return runLog, err
	}

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		CounterRuns.WithLabelValues("aborted").Inc()
		logger.Error("ingestion run aborted", "error", err)
		return runLog, err
	}
	logger.Info("ingestion run started", "files", len(files), "already_ingested", snapshot.Len())

	for _, file := range files {
		outcome := s.ingestFile(ctx, file, snapshot)
		CounterFiles.WithLabelValues(string(outcome.Status)).Inc()

		switch outcome.Status {
		case domain.FileStatusProcessed:
			logger.Info("file processed", "file", outcome.File, "rows", outcome.Rows, "table", outcome.Table)
		case domain.FileStatusSkipped:
			logger.Debug("file skipped", "file", outcome.File)
		default:
			logger.Warn("file failed", "file", outcome.File, "reason", outcome.Reason)
		}

		runLog.Entries = append(runLog.Entries, outcome)
	}

	CounterRuns.WithLabelValues("completed").Inc()
	logger.Info("ingestion run finished",
		"processed", runLog.Count(domain.FileStatusProcessed),
		"skipped", runLog.Count(domain.FileStatusSkipped),
		"failed", runLog.Count(domain.FileStatusFailed),
	)
	return runLog, nil
}

func (s *Service) prepare(ctx context.Context, opts RunOptions, logger *slog.Logger) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", s.dataDir, err)
	}
	if s.fetcher == nil || opts.SkipFetch {
		return nil
	}

	written, err := s.fetcher.Fetch(ctx, s.dataDir)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	logger.Info("fetched remote files", "count", len(written), "dir", s.dataDir)
	return nil
}

func (s *Service) loadSnapshot(ctx context.Context) (domain.LedgerSnapshot, error) {
	if err := s.ledger.EnsureSchema(ctx); err != nil {
		return domain.LedgerSnapshot{}, asLedgerUnavailable(err)
	}
	snapshot, err := s.ledger.SeenFilenames(ctx)
	if err != nil {
		return domain.LedgerSnapshot{}, asLedgerUnavailable(err)
	}
	return snapshot, nil
}

func asLedgerUnavailable(err error) error {
	if errors.Is(err, domain.ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
}

// ingestFile runs read, derive, append and mark for one file. The ledger is only
// updated after the sink accepted the rows.
func (s *Service) ingestFile(ctx context.Context, file domain.SourceFile, snapshot domain.LedgerSnapshot) domain.FileOutcome {
	if snapshot.Contains(file.Name) {
		return domain.FileOutcome{File: file.Name, Status: domain.FileStatusSkipped}
	}

	failed := func(err error) domain.FileOutcome {
		return domain.FileOutcome{File: file.Name, Status: domain.FileStatusFailed, Reason: err.Error()}
	}

	if file.Format == domain.FileFormatUnsupported {
		return failed(fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, file.Ext))
	}

	table, err := ReadTable(file.Path, file.Format)
	if err != nil {
		return failed(err)
	}

	enriched, err := DeriveRevenue(table, s.columns)
	if err != nil {
		return failed(err)
	}

	rows, err := s.sink.AppendTable(ctx, enriched, s.tableName)
	if err != nil {
		return failed(err)
	}
	CounterRowsAppended.Add(float64(rows))

	if err := s.ledger.MarkSeen(ctx, file.Name, s.now()); err != nil {
		return failed(fmt.Errorf("appended %d rows to %s but %w", rows, s.tableName, err))
	}

	return domain.FileOutcome{
		File:   file.Name,
		Status: domain.FileStatusProcessed,
		Rows:   int(rows),
		Table:  s.tableName,
	}
}

// Ledger returns the entries recorded so far.
func (s *Service) Ledger(ctx context.Context) ([]domain.LedgerEntry, error) {
	if err := s.ledger.EnsureSchema(ctx); err != nil {
		return nil, asLedgerUnavailable(err)
	}
	return s.ledger.List(ctx)
}

// ListSourceFiles returns the regular, non-hidden files of dir sorted by name.
func ListSourceFiles(dir string) ([]domain.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	// os.ReadDir sorts by filename.
	files := make([]domain.SourceFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		files = append(files, domain.SourceFile{
			Path:   filepath.Join(dir, entry.Name()),
			Name:   entry.Name(),
			Ext:    ext,
			Format: domain.FormatFromExtension(ext),
		})
	}
	return files, nil
}
