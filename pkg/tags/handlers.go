package tags

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	tagService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	tag, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, tag))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListTagsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tags, total, err := h.tagService.ListTagsWithTotal(ctx, ListTagsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Tags  []*models.Tag `json:"tags"`
		Total int           `json:"total"`
	}{tags, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateTagPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tag := &models.Tag{Name: params.Name}
	if err := h.tagService.CreateTag(ctx, tag); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, tag))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	params := UpdateTagPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tag, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Name == nil || *params.Name == tag.Name {
		return errors.WithStack(c.JSON(http.StatusOK, tag))
	}

	// Renaming onto an existing tag merges the two.
	existing, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{
		Name: params.Name,
	})
	if err == nil && existing.ID != id {
		if err := h.tagService.MergeTags(ctx, existing.ID, id); err != nil {
			return errors.WithStack(err)
		}
		logger.FromContext(ctx).Info("merged tag on rename", logger.Data{"source_id": id, "target_id": existing.ID})

		existing, err = h.tagService.RetrieveTag(ctx, RetrieveTagOptions{ID: &existing.ID})
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(c.JSON(http.StatusOK, existing))
	}
	if err != nil && !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	tag.Name = *params.Name
	err = h.tagService.UpdateTag(ctx, tag, UpdateTagOptions{Columns: []string{"name"}})
	if err != nil {
		return errors.WithStack(err)
	}

	tag, err = h.tagService.RetrieveTag(ctx, RetrieveTagOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, tag))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	if _, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.tagService.GetBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

func (h *handler) merge(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	params := MergeTagsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Merge source tag into target (this) tag
	if err := h.tagService.MergeTags(ctx, id, params.SourceID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) deleteTag(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	if err := h.tagService.DeleteTag(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
