// Content HTTP handlers.
//
//   - GET   /contents                      (list, paginated, weak ETag)
//   - POST  /contents                      (create)
//   - GET   /contents/export               (CSV)
//   - GET   /contents/{id}                 (detail)
//   - PATCH /contents/{id}                 (partial update)
//   - POST  /contents/{id}/archive         (archive)
//   - GET   /contents/{id}/hooks           (hooks)
//   - GET   /contents/{id}/distributions   (distributions of one item)
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/export"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/services"
)

// ListContents godoc
// @ID          listContents
// @Summary     List content (paginated)
// @Description Returns a page of content, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Content
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       status         query   string  false  "pending, processing, ready, distributed or archived"
// @Param       priority       query   string  false  "high, medium or low"
// @Param       audience       query   string  false  "Target audience tag"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.Content]
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contents [get]
func (h *Handlers) ListContents(c *gin.Context) {
	ctx := c.Request.Context()
	var f filters.ContentFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	if checkETag(c, "contents", filters.Key(f.Encode()), page, pageSize, func() (int64, *time.Time, error) {
		return h.contents.Stats(ctx, f)
	}) {
		return
	}

	items, total, err := h.contents.ListPage(ctx, f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}

// CreateContent godoc
// @ID          createContent
// @Summary     Create content
// @Description Creates a content item. raw_text, source_type and status are required.
// @Tags        Content
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  services.ContentInput  true  "Content payload"
// @Success     201  {object}  domain.Content
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contents [post]
func (h *Handlers) CreateContent(c *gin.Context) {
	var in services.ContentInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.contents.Create(c.Request.Context(), in)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, item)
}

// ExportContents godoc
// @ID          exportContents
// @Summary     Export content as CSV
// @Tags        Content
// @Produce     text/csv
// @Security    BearerAuth
// @Param       status  query  string  false  "Same filters as the list endpoint"
// @Success     200  {file}    file
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contents/export [get]
func (h *Handlers) ExportContents(c *gin.Context) {
	var f filters.ContentFilters
	if !bindFilters(c, &f) {
		return
	}
	rows, err := h.contents.Export(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeExportFailed)
		return
	}
	writeCSV(c, "content", export.ContentColumns, rows, h.now())
}

// GetContent godoc
// @ID          getContent
// @Summary     Get a content item
// @Tags        Content
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Content id"
// @Success     200  {object}  domain.Content
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Router      /contents/{id} [get]
func (h *Handlers) GetContent(c *gin.Context) {
	item, err := h.contents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, item)
}

// UpdateContent godoc
// @ID          updateContent
// @Summary     Update a content item
// @Description Applies the fields present in the body. id and timestamps cannot be changed.
// @Tags        Content
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                  true  "Content id"
// @Param       body  body  services.ContentUpdate  true  "Fields to change"
// @Success     200  {object}  domain.Content
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Router      /contents/{id} [patch]
func (h *Handlers) UpdateContent(c *gin.Context) {
	var in services.ContentUpdate
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.contents.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, item)
}

// ArchiveContent godoc
// @ID          archiveContent
// @Summary     Archive a content item
// @Tags        Content
// @Security    BearerAuth
// @Param       id   path  string  true  "Content id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Router      /contents/{id}/archive [post]
func (h *Handlers) ArchiveContent(c *gin.Context) {
	if err := h.contents.Archive(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	noContent(c)
}

// ListContentHooks godoc
// @ID          listContentHooks
// @Summary     List hooks generated for a content item
// @Tags        Content
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Content id"
// @Success     200  {object}  handlers.DataResponse[domain.Hook]
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Router      /contents/{id}/hooks [get]
func (h *Handlers) ListContentHooks(c *gin.Context) {
	hooks, err := h.contents.Hooks(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if hooks == nil {
		hooks = []domain.Hook{}
	}
	ok(c, http.StatusOK, DataResponse[domain.Hook]{Data: hooks})
}

// ListContentDistributions godoc
// @ID          listContentDistributions
// @Summary     List distributions of a content item
// @Tags        Content
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Content id"
// @Success     200  {object}  handlers.DataResponse[domain.Distribution]
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Router      /contents/{id}/distributions [get]
func (h *Handlers) ListContentDistributions(c *gin.Context) {
	rows, err := h.contents.Distributions(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if rows == nil {
		rows = []domain.Distribution{}
	}
	ok(c, http.StatusOK, DataResponse[domain.Distribution]{Data: rows})
}
