// Package importer maps observations from external sources onto archive
// records and commits them to the archive in tranches.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/wxarchive/internal/qc"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
	"github.com/i474232898/wxarchive/internal/wxcalc"
)

// Summary reports what an import run did.
type Summary struct {
	Source     string       `json:"source"`
	DryRun     bool         `json:"dryRun"`
	UnitSystem units.System `json:"usUnits"`

	Periods          int `json:"periods"`
	RawRecords       int `json:"rawRecords"`
	Mapped           int `json:"mapped"`
	SourceDuplicates int `json:"sourceDuplicates"`
	OutsideRange     int `json:"outsideRange"`
	Existing         int `json:"existing"`
	Imported         int `json:"imported"`
	QCRejected       int `json:"qcRejected"`
	InvalidIgnored   int `json:"invalidIgnored"`

	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// Import runs src through the pipeline into store. On error the summary
// describes what was committed before the failure.
func Import(ctx context.Context, src weather.Source, store weather.Store, opts Options) (Summary, error) {
	summary := Summary{Source: src.Name(), DryRun: opts.DryRun}

	if err := opts.normalize(); err != nil {
		return summary, err
	}
	summary.UnitSystem = opts.System

	log := logrus.WithField("source", src.Name())

	m, err := newMapper(src.FieldMap(), opts, func(format string, args ...any) {
		log.Warnf(format, args...)
	})
	if err != nil {
		return summary, err
	}

	r := &run{
		opts:      opts,
		src:       src,
		store:     store,
		mapper:    m,
		rain:      newCumulativeTracker(),
		intervals: newIntervalAssigner(opts),
		summary:   &summary,
		log:       log,
	}
	for obs, spec := range src.FieldMap() {
		if spec.Cumulative || (obs == "rain" && opts.Rain == RainCumulative) {
			r.cumulative = append(r.cumulative, obs)
		}
	}
	if opts.QC && len(opts.MinMax) > 0 {
		if r.qc, err = qc.New(opts.MinMax); err != nil {
			return summary, &ConfigError{Err: err}
		}
	}
	if opts.CalcMissing {
		if r.calc, err = wxcalc.New(opts.Station); err != nil {
			return summary, &ConfigError{Err: err}
		}
	}

	periods, err := src.Periods(ctx, opts.From, opts.To)
	if err != nil {
		return summary, &IOError{Source: src.Name(), Period: "periods", Err: err}
	}

	log.WithFields(logrus.Fields{
		"periods":  len(periods),
		"interval": opts.Interval,
		"usUnits":  opts.System.String(),
		"dryRun":   opts.DryRun,
	}).Info("starting import")

	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.period(ctx, p); err != nil {
			log.WithError(err).WithField("period", p.Label).Error("import aborted")
			return summary, err
		}
		summary.Periods++
	}

	log.WithFields(logrus.Fields{
		"raw":        summary.RawRecords,
		"imported":   summary.Imported,
		"duplicates": summary.SourceDuplicates,
		"existing":   summary.Existing,
		"qc":         summary.QCRejected,
	}).Info("import finished")
	return summary, nil
}

type run struct {
	opts       Options
	src        weather.Source
	store      weather.Store
	mapper     *mapper
	rain       *cumulativeTracker
	cumulative []string
	intervals  *intervalAssigner
	qc         *qc.Checker
	calc       *wxcalc.Calculator
	summary    *Summary
	log        *logrus.Entry
	headerSeen bool
}

func (r *run) period(ctx context.Context, p weather.Period) error {
	log := r.log.WithField("period", p.Label)

	raw, err := r.src.Fetch(ctx, p)
	if err != nil {
		return &IOError{Source: r.src.Name(), Period: p.Label, Err: err}
	}
	r.summary.RawRecords += len(raw)
	if len(raw) == 0 {
		log.Info("no data in period")
		return nil
	}
	if !r.headerSeen {
		if err := r.mapper.checkHeader(raw[0]); err != nil {
			return err
		}
		r.headerSeen = true
	}

	records := make([]weather.Record, 0, len(raw))
	for i, rr := range raw {
		rec, invalid, err := r.mapper.mapRecord(rr, p.Label, i+1)
		if err != nil {
			return err
		}
		r.summary.InvalidIgnored += invalid
		records = append(records, rec)
	}
	r.summary.Mapped += len(records)

	records, dups := sortAndDedupe(records)
	if dups > 0 {
		log.Warnf("%d records with duplicate timestamps ignored", dups)
	}
	r.summary.SourceDuplicates += dups

	r.rain.apply(records, r.cumulative)
	if err := r.intervals.apply(records, p.Label); err != nil {
		return err
	}

	kept := records[:0]
	for _, rec := range records {
		if !inRange(rec.DateTime, r.opts.From, r.opts.To) {
			r.summary.OutsideRange++
			continue
		}
		r.summary.InvalidIgnored += normalizeWind(rec, r.opts.WindDirection)
		applySensors(rec, r.opts)
		if r.qc != nil {
			for _, v := range r.qc.Apply(rec) {
				r.summary.QCRejected++
				log.WithField("dateTime", rec.DateTime.Format(time.RFC3339)).Debugf("qc: %s", v)
			}
		}
		if r.calc != nil {
			if _, err := r.calc.FillMissing(rec); err != nil {
				return fmt.Errorf("calculate missing values at %s: %w", rec.DateTime.Format(time.RFC3339), err)
			}
		}
		kept = append(kept, rec)
	}

	return r.commit(ctx, kept, log)
}

// commit saves records in tranches, skipping timestamps already archived
// unless updating.
func (r *run) commit(ctx context.Context, records []weather.Record, log *logrus.Entry) error {
	fresh := records[:0]
	for _, rec := range records {
		if !r.opts.Update && r.store.Has(rec.DateTime) {
			r.summary.Existing++
			continue
		}
		fresh = append(fresh, rec)
	}

	for start := 0; start < len(fresh); start += r.opts.Tranche {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + r.opts.Tranche
		if end > len(fresh) {
			end = len(fresh)
		}
		tranche := fresh[start:end]

		saved := len(tranche)
		if !r.opts.DryRun {
			var err error
			saved, err = r.store.SaveRecords(tranche, r.opts.Update)
			if err != nil {
				return fmt.Errorf("save tranche ending %s: %w", tranche[len(tranche)-1].DateTime.Format(time.RFC3339), err)
			}
		}
		r.summary.Imported += saved
		if r.summary.First.IsZero() {
			r.summary.First = tranche[0].DateTime
		}
		r.summary.Last = tranche[len(tranche)-1].DateTime

		log.WithFields(logrus.Fields{
			"records": saved,
			"through": r.summary.Last.Format(time.RFC3339),
			"dryRun":  r.opts.DryRun,
		}).Debug("tranche committed")
	}
	return nil
}
