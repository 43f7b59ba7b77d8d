package authors

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/search"
)

type handler struct {
	authorService *Service
	searchService *search.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Authors []*models.Author `json:"authors"`
		Total   int              `json:"total"`
	}{authors, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		Name:     params.Name,
		SortName: params.SortName,
		Bio:      params.Bio,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateAuthorOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
		// Keep the sort name in step unless one was sent explicitly.
		if params.SortName == nil {
			author.SortName = cleanup.SortName(author.Name)
			opts.Columns = append(opts.Columns, "sort_name")
		}
	}
	if params.SortName != nil && *params.SortName != author.SortName {
		author.SortName = *params.SortName
		opts.Columns = append(opts.Columns, "sort_name")
	}
	if params.Bio != nil {
		author.Bio = params.Bio
		opts.Columns = append(opts.Columns, "bio")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, opts); err != nil {
		return errors.WithStack(err)
	}

	if slices.Contains(opts.Columns, "name") {
		h.reindexBooks(c, id)
	}

	author, err = h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	if err := h.authorService.DeleteAuthor(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	if _, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.authorService.GetBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

// reindexBooks refreshes the search rows of the author's books. Failures are
// logged, not returned, since the rename itself already succeeded.
func (h *handler) reindexBooks(c echo.Context, authorID int) {
	ctx := c.Request().Context()
	log := logger.FromContext(c.Request().Context())

	books, err := h.authorService.GetBooks(ctx, authorID)
	if err != nil {
		log.Err(err).Error("failed to load books for reindex")
		return
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	if err := h.searchService.ReindexBooks(ctx, ids); err != nil {
		log.Err(err).Error("failed to reindex books", logger.Data{"author_id": authorID})
	}
}
