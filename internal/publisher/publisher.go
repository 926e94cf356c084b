// Package publisher hands a normalized record to the structured store and
// attaches its media, one item at a time, in source order.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/ugc2notion/internal/errs"
	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// MediaStrategy controls how media references become attachments
type MediaStrategy string

const (
	// LinkOnly attaches each media URL as an external reference
	LinkOnly MediaStrategy = "linkOnly"
	// UploadBinary downloads each item and uploads the bytes to the store
	UploadBinary MediaStrategy = "uploadBinary"
)

const defaultDownloadConcurrency = 4

// ParseMediaStrategy validates a configured strategy name
func ParseMediaStrategy(s string) (MediaStrategy, error) {
	switch MediaStrategy(s) {
	case LinkOnly, UploadBinary:
		return MediaStrategy(s), nil
	case "":
		return LinkOnly, nil
	default:
		return "", fmt.Errorf("unknown media strategy %q", s)
	}
}

// Store is the structured content store a record is written to
type Store interface {
	// CreateRecord persists the record's properties and returns its id
	CreateRecord(ctx context.Context, rec types.Record) (string, error)
	// AttachExternalMedia references url from the record without copying it
	AttachExternalMedia(ctx context.Context, recordID, url string) error
	// UploadMedia stores the bytes and attaches them to the record
	UploadMedia(ctx context.Context, recordID string, media types.Media) error
}

// Downloader fetches a media item for binary upload
type Downloader interface {
	Download(ctx context.Context, url string) (types.Media, error)
}

// Publisher writes records to a Store
type Publisher struct {
	store       Store
	downloader  Downloader
	strategy    MediaStrategy
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// New creates a publisher. downloader is only used with UploadBinary.
func New(store Store, downloader Downloader, strategy MediaStrategy, log zerolog.Logger) *Publisher {
	if strategy == "" {
		strategy = LinkOnly
	}
	return &Publisher{
		store:       store,
		downloader:  downloader,
		strategy:    strategy,
		concurrency: defaultDownloadConcurrency,
		now:         time.Now,
		log:         log.With().Str("component", "publisher").Logger(),
	}
}

// Publish creates the record and then attaches its media. A failed
// attachment does not fail the call; it is reported in FailedMedia and the
// record stays. Nothing is retried.
func (p *Publisher) Publish(ctx context.Context, rec types.Record) (types.PublishResult, error) {
	if rec.PublishedAt == "" {
		rec.PublishedAt = p.now().UTC().Format(time.RFC3339)
	}

	id, err := p.store.CreateRecord(ctx, rec)
	if err != nil {
		return types.PublishResult{}, errs.New(errs.KindPublish, "create record", err)
	}

	log := p.log.With().Str("record_id", id).Logger()
	log.Info().Str("title", rec.Title).Int("media", len(rec.MediaURLs)).Msg("Created record")

	result := types.PublishResult{RecordID: id, FailedMedia: []types.MediaFailure{}}

	switch p.strategy {
	case UploadBinary:
		p.uploadAll(ctx, id, rec.MediaURLs, &result)
	default:
		for _, u := range rec.MediaURLs {
			if err := p.store.AttachExternalMedia(ctx, id, u); err != nil {
				result.AddFailure(u, err)
				continue
			}
			result.Attached++
		}
	}

	for _, f := range result.FailedMedia {
		log.Warn().Str("media_url", f.URL).Str("error", f.Error).Msg("Failed to attach media")
	}
	return result, nil
}

// uploadAll downloads concurrently, then uploads in source order so the
// page shows the images the way the post does.
func (p *Publisher) uploadAll(ctx context.Context, id string, urls []string, result *types.PublishResult) {
	if p.downloader == nil {
		for _, u := range urls {
			result.AddFailure(u, fmt.Errorf("no downloader configured"))
		}
		return
	}

	media := make([]types.Media, len(urls))
	dlErrs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			m, err := p.downloader.Download(ctx, u)
			if err != nil {
				dlErrs[i] = fmt.Errorf("failed to download: %w", err)
				return nil
			}
			media[i] = m
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range urls {
		if dlErrs[i] != nil {
			result.AddFailure(u, dlErrs[i])
			continue
		}
		if err := p.store.UploadMedia(ctx, id, media[i]); err != nil {
			result.AddFailure(u, err)
			continue
		}
		result.Attached++
	}
}
