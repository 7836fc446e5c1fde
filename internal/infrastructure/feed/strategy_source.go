package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ProblemScout/internal/config"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
	"ProblemScout/internal/scanner"
)

// StrategySource implements ports.FeedSource via registered scanner strategies.
type StrategySource struct {
	registry  *scanner.Registry
	sites     []config.SiteConfig
	minLength int
	limit     int
	logger    *slog.Logger
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, ingestion config.IngestionConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:  reg,
		sites:     sites,
		minLength: ingestion.MinContentLength,
		limit:     ingestion.PostLimit,
		logger:    log,
	}
}

// Fetch iterates over configured sites, executes their scanners and filters unusable items.
// A failing site is logged and skipped; an error is returned only when every site failed.
func (s *StrategySource) Fetch(ctx context.Context) ([]domain.FeedItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch feeds", "sites", len(s.sites))

	var (
		aggregated []domain.FeedItem
		failures   []error
	)
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "channels", len(site.Channels))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			failures = append(failures, fmt.Errorf("site %s: %w", site.Name, err))
			continue
		}

		req := scanner.Request{
			SiteName: site.Name,
			Options:  site.Options,
			Channels: toScannerChannels(site.Channels),
			Limit:    s.limit,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("scan site failed", "site", site.Name, "err", err)
			}
			failures = append(failures, fmt.Errorf("scan site %s: %w", site.Name, err))
			continue
		}

		for i := range results {
			if results[i].Channel == "" {
				results[i].Channel = site.Name
			}
		}
		s.debug("site produced items", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	if len(failures) > 0 && len(failures) == len(s.sites) {
		return nil, errors.Join(failures...)
	}

	usable := Filter(aggregated, s.minLength)
	s.debug("strategy source done", "total_items", len(aggregated), "usable_items", len(usable))
	return usable, nil
}

func toScannerChannels(cfg []config.ChannelConfig) []scanner.Channel {
	channels := make([]scanner.Channel, 0, len(cfg))
	for _, ch := range cfg {
		channels = append(channels, scanner.Channel{
			Name: ch.Name,
			URL:  ch.URL,
		})
	}
	return channels
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
