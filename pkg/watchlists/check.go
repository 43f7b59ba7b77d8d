package watchlists

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/matching"
	"github.com/shelfwatch/shelfwatch/pkg/metrics"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/notifications"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/uptrace/bun"
)

const checkSearchLimit = 40

// CheckResult reports what one watchlist check found.
type CheckResult struct {
	Watchlist  *models.Watchlist         `json:"watchlist"`
	Candidates int                       `json:"candidates"`
	NewResults []*models.WatchlistResult `json:"new_results"`
}

// match is a candidate that belongs to the watched series.
type match struct {
	candidate scrapers.Candidate
	volume    *float64
	score     float64
}

// Check searches the watchlist's source for its series and records every
// volume not seen before. A volume is new when its number is above
// last_known_volume or, lacking a number, when no book with that title is in
// the library. The owner gets one notification per new result.
func (svc *Service) Check(ctx context.Context, id int) (*CheckResult, error) {
	log := logger.FromContext(ctx)

	if svc.registry == nil {
		return nil, errcodes.Unavailable("Watchlist scraping is not configured.")
	}

	watchlist, err := svc.RetrieveWatchlist(ctx, RetrieveWatchlistOptions{ID: &id})
	if err != nil {
		return nil, err
	}

	scraper, err := svc.registry.ForSource(watchlist.Source)
	if err != nil {
		return nil, err
	}

	q := scrapers.Query{Series: watchlist.SeriesName, Limit: checkSearchLimit}
	if watchlist.AuthorName != nil {
		q.Authors = []string{*watchlist.AuthorName}
	}
	candidates, err := scraper.Search(ctx, q)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	matches := seriesMatches(watchlist, candidates)

	result := &CheckResult{Watchlist: watchlist, Candidates: len(candidates)}
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		highest := watchlist.LastKnownVolume
		for _, m := range matches {
			if m.volume != nil {
				if *m.volume <= watchlist.LastKnownVolume {
					continue
				}
			} else {
				owned, err := titleInLibrary(ctx, tx, m.candidate.Title)
				if err != nil {
					return err
				}
				if owned {
					continue
				}
			}

			wr, inserted, err := insertResult(ctx, tx, watchlist.ID, m)
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}
			result.NewResults = append(result.NewResults, wr)
			if m.volume != nil && *m.volume > highest {
				highest = *m.volume
			}

			_, err = notifications.CreateNotificationTx(ctx, tx, notifications.CreateNotificationOptions{
				UserID:  watchlist.UserID,
				Type:    models.NotificationTypeWatchlistNewVolume,
				Title:   fmt.Sprintf("New in %s", watchlist.SeriesName),
				Message: describeResult(wr),
				Link:    wr.URL,
			})
			if err != nil {
				return err
			}
		}

		now := time.Now()
		watchlist.LastKnownVolume = highest
		watchlist.LastCheckedAt = &now
		watchlist.UpdatedAt = now
		_, err := tx.NewUpdate().
			Model(watchlist).
			Column("last_known_volume", "last_checked_at", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if len(result.NewResults) > 0 {
		metrics.WatchlistResults.WithLabelValues(string(watchlist.Source)).Add(float64(len(result.NewResults)))
	}
	log.Info("watchlist checked", logger.Data{
		"watchlist_id": watchlist.ID,
		"series":       watchlist.SeriesName,
		"source":       watchlist.Source,
		"candidates":   len(candidates),
		"new_results":  len(result.NewResults),
	})

	return result, nil
}

// seriesMatches keeps candidates of the watched series, best scored first,
// and at most one candidate per volume number.
func seriesMatches(watchlist *models.Watchlist, candidates []scrapers.Candidate) []match {
	var authors []string
	if watchlist.AuthorName != nil {
		authors = []string{*watchlist.AuthorName}
	}

	matches := make([]match, 0, len(candidates))
	for _, c := range candidates {
		series, volume := c.Series, c.Volume
		if series == "" || volume == nil {
			base, vol := cleanup.ExtractVolume(c.Title)
			if series == "" {
				series = base
			}
			if volume == nil {
				volume = vol
			}
		}
		similarity := matching.TitleSimilarity(series, watchlist.SeriesName)
		if similarity < matching.SeriesThreshold {
			continue
		}
		if len(authors) > 0 && len(c.Authors) > 0 && matching.AuthorSimilarity(authors, c.Authors) < matching.SeriesThreshold {
			continue
		}
		author := 1.0
		if len(authors) > 0 && len(c.Authors) > 0 {
			author = matching.AuthorSimilarity(authors, c.Authors)
		}
		matches = append(matches, match{
			candidate: c,
			volume:    volume,
			score:     0.75*similarity + 0.25*author,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matching.Completeness(matches[i].candidate) > matching.Completeness(matches[j].candidate)
	})

	seen := map[float64]bool{}
	out := matches[:0]
	for _, m := range matches {
		if m.volume != nil {
			if seen[*m.volume] {
				continue
			}
			seen[*m.volume] = true
		}
		out = append(out, m)
	}
	return out
}

func titleInLibrary(ctx context.Context, tx bun.Tx, title string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*models.Book)(nil)).
		Where("title = ? COLLATE NOCASE", strings.TrimSpace(title)).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// insertResult stores m unless the watchlist already has a result with the
// same external ID.
func insertResult(ctx context.Context, tx bun.Tx, watchlistID int, m match) (*models.WatchlistResult, bool, error) {
	c := m.candidate
	externalID := c.ExternalID
	if externalID == "" {
		externalID = c.URL
	}
	if externalID == "" {
		externalID = strings.ToLower(c.Title)
	}

	wr := &models.WatchlistResult{
		CreatedAt:    time.Now(),
		WatchlistID:  watchlistID,
		Title:        c.Title,
		VolumeNumber: m.volume,
		ExternalID:   externalID,
		Score:        m.score,
		ReleaseDate:  c.ReleaseDate,
	}
	if c.URL != "" {
		u := c.URL
		wr.URL = &u
	}

	res, err := tx.NewInsert().
		Model(wr).
		On("CONFLICT (watchlist_id, external_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, false, nil
	}
	if wr.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, false, errors.WithStack(err)
		}
		wr.ID = int(id)
	}
	return wr, true, nil
}

func describeResult(wr *models.WatchlistResult) string {
	if wr.VolumeNumber != nil {
		return fmt.Sprintf("Volume %s: %s", cleanup.FormatVolume(*wr.VolumeNumber), wr.Title)
	}
	return wr.Title
}
