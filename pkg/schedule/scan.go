package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/model"
	"zsembells/pkg/request"
)

// Fetcher is the subset of request.Client used for scraping.
type Fetcher interface {
	Fetch(ctx context.Context, u string) (*request.Response, error)
	Status(ctx context.Context, u string) bool
}

// Scanner walks timetable branches until too many of them are bad.
type Scanner struct {
	cfg     *config.ScheduleConfig
	fetcher Fetcher
}

// NewScanner creates a new Scanner.
func NewScanner(cfg *config.ScheduleConfig, f Fetcher) *Scanner {
	return &Scanner{cfg: cfg, fetcher: f}
}

// BranchURL builds the URL of the timetable page with the given index.
func (s *Scanner) BranchURL(index int) string {
	return strings.TrimRight(s.cfg.URL, "/") + fmt.Sprintf(s.cfg.BranchEndpoint, index)
}

// Scan visits branches from index 0. A branch is bad when it cannot be fetched,
// answers with a non-200 status, lands on a URL carrying an "error" query
// parameter, or has no timetable. Scanning stops once max_bad_branches is reached.
// The longest hour list wins; on equal length the later branch wins.
func (s *Scanner) Scan(ctx context.Context) (*model.Schedule, error) {
	slog.Info("Getting valid branches", "url", s.cfg.URL)

	result := &model.Schedule{ValidBranches: []int{}, ScheduleBranch: -1, Ranges: []model.HourRange{}}
	bad := 0

	for index := 0; bad < s.cfg.MaxBadBranches; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ranges, err := s.scanBranch(ctx, index)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			slog.Warn("Bad branch", "index", index, "error", err)
			bad++
			continue
		}

		result.ValidBranches = append(result.ValidBranches, index)
		if len(ranges) >= len(result.Ranges) {
			result.Ranges = ranges
			result.ScheduleBranch = index
		}
		slog.Info("Got response from a valid branch", "index", index, "ranges", len(ranges))
	}

	slog.Warn("Max number of bad branches reached", "bad", bad)
	result.FetchedAt = time.Now()
	return result, nil
}

func (s *Scanner) scanBranch(ctx context.Context, index int) ([]model.HourRange, error) {
	resp, err := s.fetcher.Fetch(ctx, s.BranchURL(index))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	// The site redirects unknown branches to a page with an "error" parameter
	if resp.URL != nil && resp.URL.Query().Has("error") {
		return nil, fmt.Errorf("error query parameter: %s", resp.URL.RawQuery)
	}
	return ExtractHourRanges(bytes.NewReader(resp.Body), s.cfg.TableClass, s.cfg.HourClass, s.cfg.MinRows)
}
