// Package enrich asks a local language model to fill in missing book
// metadata.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/metrics"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/notifications"
	"github.com/uptrace/bun"
	"golang.org/x/text/language"
)

const (
	maxCategories = 5
	maxTags       = 10
)

// Generator produces a completion for a prompt. *ollama.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggestion is the JSON document the model is asked to return.
type Suggestion struct {
	Description  string   `json:"description"`
	Categories   []string `json:"categories"`
	Tags         []string `json:"tags"`
	Series       string   `json:"series"`
	SeriesNumber *float64 `json:"series_number"`
	Language     string   `json:"language"`
}

type Result struct {
	BookID     int         `json:"book_id"`
	Suggestion *Suggestion `json:"suggestion"`
	Filled     []string    `json:"filled"`
}

type Service struct {
	generator           Generator
	bookService         *books.Service
	notificationService *notifications.Service
}

// NewService creates an enrichment service. A nil generator disables it.
func NewService(db *bun.DB, generator Generator) *Service {
	return &Service{
		generator:           generator,
		bookService:         books.NewService(db),
		notificationService: notifications.NewService(db),
	}
}

// Enabled reports whether a model is configured.
func (svc *Service) Enabled() bool {
	return svc != nil && svc.generator != nil
}

// EnrichBook prompts the model with what is known about the book and fills
// only the fields that are still empty. userID, when non-zero, is notified of
// the outcome.
func (svc *Service) EnrichBook(ctx context.Context, bookID int, userID int) (*Result, error) {
	log := logger.FromContext(ctx)

	if !svc.Enabled() {
		return nil, errcodes.Unavailable("Ollama enrichment is not configured.")
	}

	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	raw, err := svc.generator.Generate(ctx, BuildPrompt(book))
	if err != nil {
		metrics.Enrichments.WithLabelValues("error").Inc()
		return nil, errors.WithStack(err)
	}

	suggestion, err := ParseSuggestion(raw)
	if err != nil {
		metrics.Enrichments.WithLabelValues("error").Inc()
		return nil, err
	}

	filled, err := svc.bookService.FillEmptyFields(ctx, bookID, suggestion.Metadata())
	if err != nil {
		metrics.Enrichments.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &Result{BookID: bookID, Suggestion: suggestion, Filled: filled}
	if len(filled) == 0 {
		metrics.Enrichments.WithLabelValues("unchanged").Inc()
	} else {
		metrics.Enrichments.WithLabelValues("updated").Inc()
	}
	log.Info("book enriched", logger.Data{"book_id": bookID, "filled": filled})

	if userID != 0 {
		message := "Nothing new was found."
		if len(filled) > 0 {
			message = "Filled " + strings.Join(filled, ", ") + "."
		}
		link := fmt.Sprintf("/books/%d", bookID)
		_, err := svc.notificationService.CreateNotification(ctx, notifications.CreateNotificationOptions{
			UserID:  userID,
			Type:    models.NotificationTypeEnrichmentComplete,
			Title:   fmt.Sprintf("Enriched %s", book.Title),
			Message: message,
			Link:    &link,
		})
		if err != nil {
			log.Err(err).Error("failed to create enrichment notification", logger.Data{"book_id": bookID})
		}
	}

	return result, nil
}

// BuildPrompt describes the book and asks for a JSON object with the fields
// of Suggestion.
func BuildPrompt(book *models.Book) string {
	var sb strings.Builder
	sb.WriteString("You are a librarian. Using your knowledge of published books, suggest metadata for the book below.\n")
	sb.WriteString("Answer with a single JSON object with the keys description (string, at most 3 sentences), ")
	sb.WriteString("categories (array of up to 5 broad genres), tags (array of up to 10 short keywords), ")
	sb.WriteString("series (string, empty if none), series_number (number or null) and language (ISO 639-1 code).\n")
	sb.WriteString("Use empty values for anything you are not sure about.\n\n")

	fmt.Fprintf(&sb, "Title: %s\n", book.Title)
	if book.Subtitle != nil {
		fmt.Fprintf(&sb, "Subtitle: %s\n", *book.Subtitle)
	}
	if authors := book.AuthorNames(); len(authors) > 0 {
		fmt.Fprintf(&sb, "Authors: %s\n", strings.Join(authors, ", "))
	}
	if book.Series != nil {
		fmt.Fprintf(&sb, "Series: %s\n", book.Series.Name)
	}
	if book.Publisher != nil {
		fmt.Fprintf(&sb, "Publisher: %s\n", *book.Publisher)
	}
	if book.ReleaseDate != nil {
		fmt.Fprintf(&sb, "Published: %d\n", book.ReleaseDate.Year())
	}
	if book.ISBN13 != nil {
		fmt.Fprintf(&sb, "ISBN: %s\n", *book.ISBN13)
	}
	if book.Description != nil {
		fmt.Fprintf(&sb, "Existing description: %s\n", *book.Description)
	}
	return sb.String()
}

// ParseSuggestion reads the model's answer. Text around the JSON object, such
// as a Markdown code fence, is ignored.
func ParseSuggestion(raw string) (*Suggestion, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, errcodes.UpstreamError("Ollama")
	}

	s := &Suggestion{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), s); err != nil {
		return nil, errors.Wrap(errcodes.UpstreamError("Ollama"), err.Error())
	}
	s.normalize()
	return s, nil
}

func (s *Suggestion) normalize() {
	s.Description = strings.TrimSpace(s.Description)
	s.Series = strings.TrimSpace(s.Series)
	s.Categories = cleanList(s.Categories, maxCategories)
	s.Tags = cleanList(s.Tags, maxTags)
	if s.SeriesNumber != nil && (*s.SeriesNumber <= 0 || s.Series == "") {
		s.SeriesNumber = nil
	}
	s.Language = normalizeLanguage(s.Language)
}

// Metadata converts the suggestion into metadata attributed to Ollama.
func (s *Suggestion) Metadata() *mediafile.ParsedMetadata {
	return &mediafile.ParsedMetadata{
		Description:  s.Description,
		Categories:   s.Categories,
		Tags:         s.Tags,
		Series:       s.Series,
		SeriesNumber: s.SeriesNumber,
		Language:     s.Language,
		DataSource:   models.DataSourceOllama,
	}
}

func cleanList(in []string, limit int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// normalizeLanguage keeps the base language of a BCP 47 tag ("en-US" -> "en").
// Anything that is not a tag, like "English", is dropped.
func normalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
