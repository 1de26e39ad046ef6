package fetcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sitescout/sitescout/internal/models"
	"github.com/sitescout/sitescout/internal/storage"
	"github.com/sitescout/sitescout/internal/utils"
	"github.com/sitescout/sitescout/internal/writer"
)

const pageCtxKey = "page"

// Options configure the fetch phase of a run.
type Options struct {
	UserAgent     string
	Delay         time.Duration
	Timeout       time.Duration
	MaxTextLength int
}

// Fetcher downloads the selected pages one at a time, paced by a fixed
// delay, and delegates persistence to the writer and the store.
type Fetcher struct {
	collector  *colly.Collector
	store      storage.Store
	writer     *writer.Writer
	log        *utils.Logger
	maxTextLen int
}

// Summary is the outcome of a fetch phase.
type Summary struct {
	Fetched int
	Failed  int
	Bytes   int
	Pages   []*models.Page
	Records []writer.ManifestPage
}

func New(store storage.Store, w *writer.Writer, logger *utils.Logger, opts Options) *Fetcher {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
	)
	c.SetRequestTimeout(opts.Timeout)
	c.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      opts.Delay,
	})

	f := &Fetcher{
		collector:  c,
		store:      store,
		writer:     w,
		log:        logger,
		maxTextLen: opts.MaxTextLength,
	}
	f.setupHandlers()

	return f
}

func (f *Fetcher) setupHandlers() {
	f.collector.OnResponse(func(r *colly.Response) {
		page, ok := r.Ctx.GetAny(pageCtxKey).(*models.Page)
		if !ok {
			return
		}

		page.StatusCode = r.StatusCode
		page.ContentLength = len(r.Body)
		page.FetchedAt = time.Now()

		name, err := f.writer.WriteHTML(page.Rank, page.URL, r.Body)
		if err != nil {
			f.log.Warn("failed to store raw HTML", "url", page.URL, "error", err)
		} else {
			page.HTMLPath = name
		}

		content, err := ExtractContent(page.URL, r.Body, f.maxTextLen)
		if err != nil {
			f.log.Warn("content extraction failed", "url", page.URL, "error", err)
			return
		}

		page.Title = content.Title
		page.Description = content.Description
		page.Tags = content.Tags
		page.TextContent = content.Text

		// Keep whatever FetchAll seeded (the score breakdown) and add
		// the response facts.
		meta := map[string]interface{}{}
		if page.Metadata != nil {
			json.Unmarshal(*page.Metadata, &meta)
		}
		meta["content_type"] = r.Headers.Get("Content-Type")
		meta["final_url"] = r.Request.URL.String()
		if metaJSON, err := json.Marshal(meta); err == nil {
			raw := json.RawMessage(metaJSON)
			page.Metadata = &raw
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		page, ok := r.Ctx.GetAny(pageCtxKey).(*models.Page)
		if !ok {
			return
		}

		page.StatusCode = r.StatusCode
		page.FetchError = err.Error()
		page.FetchedAt = time.Now()
	})
}

// FetchAll visits the selection in rank order. Each page row is saved
// whether the fetch succeeded or not; failures never stop the run. The
// returned summary carries the pages and their manifest records.
func (f *Fetcher) FetchAll(ctx context.Context, run *models.Run, selection []models.ScoredEntry) (*Summary, error) {
	summary := &Summary{}

	for i, entry := range selection {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rank := i + 1
		f.log.Info("fetching page", "rank", rank, "total", len(selection), "url", entry.URL)

		page := models.NewPage(run.ID, entry.URL)
		page.Rank = rank
		page.Score = entry.Score
		page.Depth = entry.Depth
		page.HasKeyword = entry.HasKeyword
		page.Priority = entry.Priority
		page.ChangeFreq = string(entry.ChangeFreq)
		page.LastModified = entry.LastModified

		if breakdown, err := json.Marshal(map[string]interface{}{"breakdown": entry.Breakdown}); err == nil {
			raw := json.RawMessage(breakdown)
			page.Metadata = &raw
		}

		rctx := colly.NewContext()
		rctx.Put(pageCtxKey, page)

		if err := f.collector.Request("GET", entry.URL, nil, rctx, nil); err != nil && page.FetchError == "" {
			page.FetchError = err.Error()
		}

		if page.Failed() {
			summary.Failed++
			f.log.Warn("fetch failed", "url", entry.URL, "error", page.FetchError)
		} else {
			summary.Fetched++
			summary.Bytes += page.ContentLength
		}

		if err := f.store.SavePage(ctx, page); err != nil {
			f.log.Error("failed to save page", "url", entry.URL, "error", err)
		}

		summary.Pages = append(summary.Pages, page)
		summary.Records = append(summary.Records, manifestRecord(page, entry))
	}

	return summary, nil
}

func manifestRecord(page *models.Page, entry models.ScoredEntry) writer.ManifestPage {
	record := writer.ManifestPage{
		URL:   page.URL,
		Rank:  page.Rank,
		Score: page.Score,
		Breakdown: writer.Breakdown{
			Priority:   entry.Breakdown.Priority,
			ChangeFreq: entry.Breakdown.ChangeFreq,
			Depth:      entry.Breakdown.Depth,
			Keyword:    entry.Breakdown.Keyword,
			Homepage:   entry.Breakdown.Homepage,
			Recency:    entry.Breakdown.Recency,
		},
		File:       page.HTMLPath,
		StatusCode: page.StatusCode,
	}

	if page.Failed() {
		record.Status = writer.StatusFailed
		record.Error = page.FetchError
	} else {
		record.Status = writer.StatusFetched
	}

	return record
}
