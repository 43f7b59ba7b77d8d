package worker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/joblogs"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/notifications"
)

// ProcessWatchlistCheckJob checks one watchlist, or every active one when the
// job names none. A failing watchlist does not stop the others; the job fails
// only when every check failed.
func (w *Worker) ProcessWatchlistCheckJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobWatchlistCheckData)
	if !ok {
		return errors.Errorf("unexpected data %T for watchlist check job", job.DataParsed)
	}

	if data.WatchlistID != nil {
		result, err := w.watchlistService.Check(ctx, *data.WatchlistID)
		if err != nil {
			return errors.WithStack(err)
		}
		jl.Info("watchlist checked", checkData(result.Watchlist, result.Candidates, len(result.NewResults)))
		return nil
	}

	ids, err := w.watchlistService.ListActiveIDs(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	jl.Info("checking watchlists", logger.Data{"count": len(ids)})

	var failed, found int
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		result, err := w.watchlistService.Check(ctx, id)
		if err != nil {
			failed++
			jl.Error("watchlist check error", err, logger.Data{"watchlist_id": id})
		} else {
			found += len(result.NewResults)
			jl.Info("watchlist checked", checkData(result.Watchlist, result.Candidates, len(result.NewResults)))
		}
		w.setProgress(ctx, job, i+1, len(ids))
	}

	jl.Info("watchlists checked", logger.Data{"count": len(ids), "failed": failed, "new_results": found})
	if len(ids) > 0 && failed == len(ids) {
		return errors.Errorf("all %d watchlist checks failed", failed)
	}
	return nil
}

func checkData(wl *models.Watchlist, candidates, newResults int) logger.Data {
	return logger.Data{
		"watchlist_id": wl.ID,
		"series":       wl.SeriesName,
		"source":       string(wl.Source),
		"candidates":   candidates,
		"new_results":  newResults,
	}
}

func (w *Worker) ProcessEnrichJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobEnrichData)
	if !ok {
		return errors.Errorf("unexpected data %T for enrich job", job.DataParsed)
	}

	var userID int
	if job.UserID != nil {
		userID = *job.UserID
	}

	result, err := w.enrichService.EnrichBook(ctx, data.BookID, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	jl.Info("book enriched", logger.Data{"book_id": data.BookID, "filled": strings.Join(result.Filled, ",")})
	return nil
}

type importSummary struct {
	Files   int
	Created int
	Added   int
	Skipped int
	Failed  int
}

// ProcessImportJob imports every supported file and CSV spreadsheet under the
// job's path, or under import_path when the job names none, and then tells
// the admins what happened.
func (w *Worker) ProcessImportJob(ctx context.Context, job *models.Job, jl *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobImportData)
	if !ok {
		return errors.Errorf("unexpected data %T for import job", job.DataParsed)
	}
	root := data.Path
	if root == "" {
		root = w.config.ImportPath
	}
	if root == "" {
		return errcodes.ValidationError("No import path is configured.")
	}

	paths, err := w.importablePaths(root)
	if err != nil {
		return err
	}
	jl.Info("import started", logger.Data{"path": root, "files": len(paths)})

	summary := importSummary{Files: len(paths)}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			w.importCSV(ctx, path, jl, &summary)
		} else {
			w.importFile(ctx, path, jl, &summary)
		}
		w.setProgress(ctx, job, i+1, len(paths))
	}

	jl.Info("import finished", logger.Data{
		"files":   summary.Files,
		"created": summary.Created,
		"added":   summary.Added,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})

	link := fmt.Sprintf("/jobs/%d", job.ID)
	_, err = w.notificationService.NotifyAdmins(ctx, notifications.CreateNotificationOptions{
		Type:  models.NotificationTypeImportComplete,
		Title: "Import finished",
		Message: fmt.Sprintf("Imported %d new books and %d files into existing books from %s. %d skipped, %d failed.",
			summary.Created, summary.Added, root, summary.Skipped, summary.Failed),
		Link: &link,
	})
	return errors.WithStack(err)
}

// importablePaths lists the files under root that the parser registry or
// the CSV importer can read, in lexical order.
func (w *Worker) importablePaths(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "import path %s", root)
	}
	if !info.IsDir() {
		return nil, errcodes.ValidationError(fmt.Sprintf("Import path %s is not a directory.", root))
	}

	paths := []string{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") || w.ingester.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return paths, nil
}

func (w *Worker) importFile(ctx context.Context, path string, jl *joblogs.JobLogger, summary *importSummary) {
	result, err := w.ingester.ImportFile(ctx, path)
	if errcodes.IsConflict(err) {
		summary.Skipped++
		jl.Info("file already imported", logger.Data{"path": path})
		return
	}
	if err != nil {
		summary.Failed++
		jl.Error("file import error", err, logger.Data{"path": path})
		return
	}

	if result.Created {
		summary.Created++
	} else {
		summary.Added++
	}
	jl.Info("file imported", logger.Data{
		"path":    path,
		"book_id": result.Book.ID,
		"created": result.Created,
		"filled":  strings.Join(result.Filled, ","),
	})
}

func (w *Worker) importCSV(ctx context.Context, path string, jl *joblogs.JobLogger, summary *importSummary) {
	f, err := os.Open(path)
	if err != nil {
		summary.Failed++
		jl.Error("open spreadsheet error", err, logger.Data{"path": path})
		return
	}
	defer f.Close()

	result, err := w.ingester.ImportCSV(ctx, f)
	if err != nil {
		summary.Failed++
		jl.Error("spreadsheet import error", err, logger.Data{"path": path})
		return
	}

	summary.Created += len(result.Created)
	summary.Skipped += len(result.Skipped)
	summary.Failed += len(result.Errors)
	for _, rowErr := range result.Errors {
		jl.Warn("spreadsheet row rejected", logger.Data{"path": path, "line": rowErr.Line, "message": rowErr.Message})
	}
	jl.Info("spreadsheet imported", logger.Data{
		"path":    path,
		"created": len(result.Created),
		"skipped": len(result.Skipped),
		"errors":  len(result.Errors),
	})
}

func errorMessage(err error) string {
	var e *errcodes.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
