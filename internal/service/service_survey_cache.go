// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/blob"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/markup"
	"github.com/MKhiriev/go-form-keeper/internal/store"
	"github.com/MKhiriev/go-form-keeper/internal/workers"
	"github.com/MKhiriev/go-form-keeper/models"
)

const (
	mediaCacheSize    = 128
	mediaFetchLimit   = 4
	mediaKeySeparator = "\x00"
)

type surveyCache struct {
	surveys   store.SurveyRepository
	resources store.ResourceRepository
	flusher   tableFlusher
	adapter   adapter.ServerAdapter
	monitor   ConnectivityMonitor
	recorder  Recorder

	freshnessDelay    time.Duration
	freshnessInterval time.Duration

	media   *lru.Cache
	fetches singleflight.Group

	mu     sync.Mutex
	timers map[string]context.CancelFunc
	wg     sync.WaitGroup

	events broadcaster[models.CacheEvent]
}

// NewSurveyCache returns a cache over the survey and resource repositories
// of storages. Freshness checks run on the schedule of cfg and are skipped
// while monitor reports offline.
func NewSurveyCache(
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	monitor ConnectivityMonitor,
	recorder Recorder,
	cfg config.ClientWorkers,
) (SurveyCache, error) {
	media, err := lru.New(mediaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create media cache: %w", err)
	}
	if recorder == nil {
		recorder = NopRecorder()
	}

	return &surveyCache{
		surveys:           storages.Surveys,
		resources:         storages.Resources,
		flusher:           storages,
		adapter:           serverAdapter,
		monitor:           monitor,
		recorder:          recorder,
		freshnessDelay:    cfg.FreshnessDelay,
		freshnessInterval: cfg.FreshnessInterval,
		media:             media,
		timers:            make(map[string]context.CancelFunc),
	}, nil
}

func (c *surveyCache) Init(ctx context.Context, ref models.SurveyRef) (models.Survey, error) {
	log := logger.FromContext(ctx)

	survey, found, err := c.Get(ctx, ref.ID)
	if err != nil {
		return models.Survey{}, err
	}

	if !found {
		log.Info().Str("survey_id", ref.ID).Msg("survey not cached, fetching from server")

		survey, err = c.Set(ctx, ref)
		if err != nil {
			return models.Survey{}, err
		}
	}

	if survey.Resources == nil {
		withMedia, err := c.UpdateMedia(ctx, survey)
		switch {
		case err == nil:
			survey = withMedia
		case !found:
			return models.Survey{}, err
		default:
			log.Warn().Err(err).Str("survey_id", ref.ID).Msg("media not refreshed, serving cached survey")
		}
	}

	c.schedule(ctx, ref)
	return survey, nil
}

func (c *surveyCache) Get(ctx context.Context, id string) (models.Survey, bool, error) {
	survey, err := c.surveys.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Survey{}, false, nil
	}
	if err != nil {
		return models.Survey{}, false, fmt.Errorf("get survey: %w", err)
	}
	return survey, true, nil
}

func (c *surveyCache) Set(ctx context.Context, ref models.SurveyRef) (models.Survey, error) {
	survey, err := c.fetch(ctx, ref)
	if err != nil {
		return models.Survey{}, err
	}

	if err = c.surveys.Set(ctx, survey); err != nil {
		return models.Survey{}, fmt.Errorf("store survey: %w", err)
	}
	return survey, nil
}

func (c *surveyCache) Update(ctx context.Context, survey models.Survey) error {
	if err := c.surveys.Update(ctx, survey); err != nil {
		return fmt.Errorf("update survey: %w", err)
	}
	return nil
}

func (c *surveyCache) Remove(ctx context.Context, ref models.SurveyRef) error {
	c.unschedule(ref.ID)
	c.forgetMedia(ref.ID)

	if err := c.surveys.Remove(ctx, ref.ID); err != nil {
		return fmt.Errorf("remove survey: %w", err)
	}
	return nil
}

func (c *surveyCache) UpdateMedia(ctx context.Context, survey models.Survey) (models.Survey, error) {
	if survey.Resources != nil {
		return survey, nil
	}

	log := logger.FromContext(ctx)

	groups, err := markup.GroupBySrc(survey.Form)
	if err != nil {
		return survey, fmt.Errorf("group media: %w", err)
	}
	urls := markup.URLs(groups)

	files := make([]models.Resource, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mediaFetchLimit)
	for i, url := range urls {
		g.Go(func() error {
			item, err := c.fetchMedia(gctx, url)
			if err != nil {
				return err
			}
			files[i] = models.Resource{SurveyID: survey.ID, URL: url, Item: item}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		log.Err(err).
			Str("func", "surveyCache.UpdateMedia").
			Str("survey_id", survey.ID).
			Msg("failed to download survey media")
		return survey, fmt.Errorf("download media: %w", err)
	}

	survey.Resources = urls
	if survey.Resources == nil {
		survey.Resources = []string{}
	}
	survey.Files = files
	if err = c.surveys.Update(ctx, survey); err != nil {
		return survey, fmt.Errorf("store survey media: %w", err)
	}
	survey.Files = nil

	for _, f := range files {
		c.media.Add(mediaKey(survey.ID, f.URL), f.Item)
	}

	log.Info().Str("survey_id", survey.ID).Int("resources", len(urls)).Msg("survey media stored")
	return survey, nil
}

func (c *surveyCache) LoadMedia(ctx context.Context, survey models.Survey) (map[string]models.Blob, error) {
	log := logger.FromContext(ctx)

	loaded := make(map[string]models.Blob, len(survey.Resources))
	for _, url := range survey.Resources {
		key := mediaKey(survey.ID, url)
		if v, ok := c.media.Get(key); ok {
			loaded[url] = v.(models.Blob)
			continue
		}

		resource, err := c.resources.Get(ctx, survey.ID, url)
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Str("survey_id", survey.ID).Str("url", url).Msg("listed resource is not stored")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load resource: %w", err)
		}

		c.media.Add(key, resource.Item)
		loaded[url] = resource.Item
	}
	return loaded, nil
}

func (c *surveyCache) OfflineForm(ctx context.Context, survey models.Survey) (string, error) {
	media, err := c.LoadMedia(ctx, survey)
	if err != nil {
		return "", err
	}

	sources := make(map[string]string, len(media))
	for url, item := range media {
		sources[url] = blob.ToDataURI(item)
	}
	return markup.ApplySources(survey.Form, sources)
}

func (c *surveyCache) CheckForUpdate(ctx context.Context, ref models.SurveyRef) (Freshness, error) {
	result, err := c.checkForUpdate(ctx, ref)
	c.recorder.ObserveFreshnessCheck(result)
	return result, err
}

func (c *surveyCache) checkForUpdate(ctx context.Context, ref models.SurveyRef) (Freshness, error) {
	log := logger.FromContext(ctx)

	hash, err := c.adapter.GetFormPartsHash(ctx, ref)
	if adapter.IsNotFound(err) {
		return c.removeGone(ctx, ref)
	}
	if err != nil {
		return FreshnessFailed, fmt.Errorf("get form hash: %w", err)
	}

	local, found, err := c.Get(ctx, ref.ID)
	if err != nil {
		return FreshnessFailed, err
	}
	if !found {
		return FreshnessFailed, ErrSurveyNotFound
	}
	if local.Hash == hash {
		return FreshnessUpToDate, nil
	}

	log.Info().Str("survey_id", ref.ID).Str("old_hash", local.Hash).Str("new_hash", hash).
		Msg("cached survey is outdated, refreshing")

	survey, err := c.fetch(ctx, ref)
	if errors.Is(err, ErrSurveyNotFound) {
		return c.removeGone(ctx, ref)
	}
	if err != nil {
		return FreshnessFailed, err
	}

	if err = c.surveys.Update(ctx, survey); err != nil {
		return FreshnessFailed, fmt.Errorf("replace survey: %w", err)
	}
	for _, url := range local.Resources {
		if err = c.resources.Remove(ctx, ref.ID, url); err != nil {
			log.Err(err).
				Str("func", "surveyCache.CheckForUpdate").
				Str("survey_id", ref.ID).
				Str("url", url).
				Msg("failed to drop outdated resource")
		}
	}
	c.forgetMedia(ref.ID)

	c.events.publish(models.CacheEvent{Kind: models.CacheSurveyUpdated, SurveyID: ref.ID, Hash: survey.Hash})
	return FreshnessUpdated, nil
}

func (c *surveyCache) removeGone(ctx context.Context, ref models.SurveyRef) (Freshness, error) {
	logger.FromContext(ctx).Warn().Str("survey_id", ref.ID).Msg("survey no longer exists on server, removing local copy")

	if err := c.Remove(ctx, ref); err != nil {
		return FreshnessFailed, err
	}
	c.events.publish(models.CacheEvent{Kind: models.CacheSurveyRemoved, SurveyID: ref.ID})
	return FreshnessRemoved, nil
}

func (c *surveyCache) Flush(ctx context.Context) error {
	for _, table := range []string{store.TableResources, store.TableSurveys} {
		if err := c.flusher.FlushTable(ctx, table); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
	}
	c.media.Purge()
	return nil
}

func (c *surveyCache) Subscribe(fn func(models.CacheEvent)) func() {
	return c.events.Subscribe(fn)
}

func (c *surveyCache) Stop() {
	c.mu.Lock()
	for id, cancel := range c.timers {
		cancel()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// fetch downloads the form parts of ref and prepares them for offline
// storage. Media stays unfetched.
func (c *surveyCache) fetch(ctx context.Context, ref models.SurveyRef) (models.Survey, error) {
	log := logger.FromContext(ctx)

	parts, err := c.adapter.GetFormParts(ctx, ref)
	if adapter.IsNotFound(err) {
		return models.Survey{}, fmt.Errorf("%w: %s", ErrSurveyNotFound, ref.ID)
	}
	if err != nil {
		log.Err(err).
			Str("func", "surveyCache.fetch").
			Str("survey_id", ref.ID).
			Msg("failed to fetch form parts")
		return models.Survey{}, fmt.Errorf("get form parts: %w", err)
	}

	survey := parts.ToSurvey(ref)
	if survey.Form, err = markup.SwapMediaSrc(survey.Form); err != nil {
		return models.Survey{}, fmt.Errorf("%w: %w", ErrFormIncomplete, err)
	}
	if !survey.IsComplete() {
		return models.Survey{}, fmt.Errorf("%w: %s", ErrFormIncomplete, ref.ID)
	}
	return survey, nil
}

func (c *surveyCache) fetchMedia(ctx context.Context, url string) (models.Blob, error) {
	v, err, _ := c.fetches.Do(url, func() (any, error) {
		return c.adapter.GetFile(ctx, url)
	})
	if err != nil {
		return models.Blob{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	item := v.(models.Blob)
	if item.Data == nil {
		item.Data = []byte{}
	}
	return item, nil
}

// schedule starts the freshness timers of ref unless they already run.
func (c *surveyCache) schedule(ctx context.Context, ref models.SurveyRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.timers[ref.ID]; ok {
		return
	}

	timerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.timers[ref.ID] = cancel

	job := workers.NewPeriodic(c.freshnessDelay, c.freshnessInterval, func(ctx context.Context) {
		c.backgroundCheck(ctx, ref)
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		job.Run(timerCtx)
	}()
}

func (c *surveyCache) unschedule(id string) {
	c.mu.Lock()
	cancel, ok := c.timers[id]
	delete(c.timers, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

// backgroundCheck runs a freshness check whose failures never reach the
// user.
func (c *surveyCache) backgroundCheck(ctx context.Context, ref models.SurveyRef) {
	log := logger.FromContext(ctx)

	if c.monitor != nil && c.monitor.Status() == models.StatusOffline {
		log.Debug().Str("survey_id", ref.ID).Msg("offline, freshness check skipped")
		return
	}

	result, err := c.CheckForUpdate(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Str("survey_id", ref.ID).Msg("freshness check failed")
		return
	}
	log.Debug().Str("survey_id", ref.ID).Str("result", result.String()).Msg("freshness check done")
}

func (c *surveyCache) forgetMedia(surveyID string) {
	prefix := surveyID + mediaKeySeparator
	for _, k := range c.media.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			c.media.Remove(k)
		}
	}
}

func mediaKey(surveyID, url string) string {
	return surveyID + mediaKeySeparator + url
}
