package categories

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	categoryService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	category, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, category))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCategoriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	categories, total, err := h.categoryService.ListCategoriesWithTotal(ctx, ListCategoriesOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Search:   params.Search,
		ParentID: params.ParentID,
		TopLevel: params.TopLevel,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Categories []*models.Category `json:"categories"`
		Total      int                `json:"total"`
	}{categories, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateCategoryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	category := &models.Category{
		Name:     params.Name,
		ParentID: params.ParentID,
	}
	if err := h.categoryService.CreateCategory(ctx, category); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, category))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	params := UpdateCategoryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	category, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateCategoryOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != category.Name {
		category.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.ParentID != nil {
		if *params.ParentID == 0 {
			category.ParentID = nil
		} else {
			category.ParentID = params.ParentID
		}
		opts.Columns = append(opts.Columns, "parent_id")
	}

	if err := h.categoryService.UpdateCategory(ctx, category, opts); err != nil {
		return errors.WithStack(err)
	}

	category, err = h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, category))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	if _, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.categoryService.GetBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

func (h *handler) deleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	if err := h.categoryService.DeleteCategory(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
