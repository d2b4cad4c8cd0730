package service

import (
	"context"
	"time"

	"github.com/cardoc/cardoc-go/internal/archive"
	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/datastore"
	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/mqtt"
	"github.com/cardoc/cardoc-go/internal/myaudio"
	"github.com/cardoc/cardoc-go/internal/narration"
	"github.com/cardoc/cardoc-go/internal/notification"
	"github.com/cardoc/cardoc-go/internal/observability"
	"github.com/cardoc/cardoc-go/internal/resultcache"
	"github.com/cardoc/cardoc-go/internal/tutorials"
)

// NewAnalyzer builds the core analyzer for settings. m may be nil.
func NewAnalyzer(settings *conf.Settings, m *observability.Metrics) *diagnosis.Analyzer {
	var decoderOpts []myaudio.DecoderOption
	var analyzerOpts []diagnosis.Option
	if m != nil {
		decoderOpts = append(decoderOpts, myaudio.WithDecodeObserver(m.Analysis))
		analyzerOpts = append(analyzerOpts, diagnosis.WithObserver(m.Analysis))
	}
	decoder := myaudio.NewDecoderFromSettings(settings, decoderOpts...)
	return diagnosis.NewAnalyzer(append(analyzerOpts, diagnosis.WithDecoder(decoder))...)
}

// NewFromSettings builds a Diagnoser with every collaborator enabled in
// settings. m may be nil. Collaborators that fail to start are a
// configuration error, except the MQTT broker, which is retried in the
// background.
func NewFromSettings(ctx context.Context, settings *conf.Settings, m *observability.Metrics) (d *Diagnoser, err error) {
	log := GetLogger()
	opts := []Option{}
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	if m != nil {
		opts = append(opts, WithRecorder(m.Collaborators))
	}

	cache, err := resultcache.New(&settings.Cache)
	if err != nil {
		return nil, err
	}
	closers = append(closers, cache.Close)
	opts = append(opts, WithCache(cache))

	if store := datastore.New(settings); store != nil {
		if err := store.Open(); err != nil {
			return nil, err
		}
		closers = append(closers, store.Close)
		opts = append(opts, WithStore(store))
	}

	if settings.Archive.Enabled {
		target, err := archive.New(&settings.Archive)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithArchive(target))
	}

	narrator, err := narration.New(ctx, &settings.Narration)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithNarrator(narrator))

	searcher, err := tutorials.New(ctx, &settings.Tutorials)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithTutorials(searcher, settings.Tutorials.MaxResults))

	notifier, err := notification.New(&settings.Notification)
	if err != nil {
		return nil, err
	}
	if notifier != nil {
		opts = append(opts, WithNotifier(notifier))
	}

	publisher, err := mqtt.New(&settings.MQTT)
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		connectCtx, cancel := context.WithTimeout(ctx, mqtt.ConnectTimeout)
		if err := publisher.Connect(connectCtx); err != nil {
			log.Warn("mqtt broker unavailable, will keep retrying",
				logger.String("broker", settings.MQTT.Broker),
				logger.Error(err))
		}
		cancel()
		closers = append(closers, func() error {
			publisher.Disconnect()
			return nil
		})
		opts = append(opts, WithPublisher(publisher))
	}

	for _, c := range closers {
		opts = append(opts, WithCloser(c))
	}

	log.Info("diagnosis service initialized",
		logger.Bool("cache", settings.Cache.Enabled),
		logger.Bool("persistence", settings.Output.SQLite.Enabled || settings.Output.MySQL.Enabled),
		logger.Bool("archive", settings.Archive.Enabled),
		logger.Bool("narration", narrator.Enabled()),
		logger.Bool("tutorials", searcher.Enabled()),
		logger.Bool("notifications", notifier != nil),
		logger.Bool("mqtt", publisher != nil),
		logger.Duration("narration_timeout", orDuration(settings.Narration.Timeout, narration.DefaultTimeout)))

	return New(NewAnalyzer(settings, m), opts...), nil
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
