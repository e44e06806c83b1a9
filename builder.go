package phonecomplete

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/remiges-tech/phonecomplete/index"
	"github.com/remiges-tech/phonecomplete/phone"
	"github.com/remiges-tech/phonecomplete/sources"
)

// BuildStats summarizes one index build.
type BuildStats struct {
	// Records is the number of records scanned.
	Records int
	// Indexed is the number of phone fields inserted into the index.
	Indexed int
	// Skipped is the number of non-empty phone fields that did not normalize.
	Skipped int
	// Keys is the number of distinct keys in the finished index.
	Keys int
	// Duration is the wall time of the build.
	Duration time.Duration
}

// buildIndex scans src and returns a fully populated tree. Any source error
// fails the whole build; no partial tree is ever returned.
func buildIndex(ctx context.Context, src sources.Source, opts Options, log logrus.FieldLogger) (*index.Tree, BuildStats, error) {
	start := time.Now()
	var stats BuildStats

	total, err := src.Count(ctx)
	if err != nil {
		// only used for progress logging
		log.WithError(err).Warn("failed to count records")
		total = -1
	}
	log.WithField("records", total).Info("building phone index")

	tree := index.New()
	normalizer := phone.Normalizer{DomesticPrefix: opts.DomesticPrefix}
	scanOpts := sources.ScanOptions{
		Fields:    opts.PhoneFields,
		BatchSize: opts.BatchSize,
	}

	err = src.Scan(ctx, scanOpts, func(rec sources.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Records++
		buildRecords.Inc()

		for _, field := range opts.PhoneFields {
			raw, ok := rec.Fields[field]
			if !ok || raw == "" {
				continue
			}
			key, ok := normalizer.Normalize(raw)
			if !ok {
				stats.Skipped++
				buildPhones.WithLabelValues("skipped").Inc()
				log.WithFields(logrus.Fields{"record": rec.ID, "field": field}).Debug("skipping phone number")
				continue
			}
			if err := tree.Insert(key, rec.ID); err != nil {
				return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
			}
			stats.Indexed++
			buildPhones.WithLabelValues("indexed").Inc()
		}

		if opts.ProgressEvery > 0 && stats.Records%opts.ProgressEvery == 0 {
			log.WithFields(logrus.Fields{
				"records": stats.Records,
				"total":   total,
			}).Info("indexing")
		}
		return nil
	})
	stats.Duration = time.Since(start)
	if err != nil {
		buildDuration.WithLabelValues("failed").Observe(stats.Duration.Seconds())
		return nil, stats, fmt.Errorf("failed to scan records: %w", err)
	}

	stats.Keys = tree.Len()
	buildDuration.WithLabelValues("ok").Observe(stats.Duration.Seconds())
	return tree, stats, nil
}
