// Prompt HTTP handlers.
//
//   - GET   /prompts                               (list, paginated, weak ETag)
//   - POST  /prompts                               (create family at version 1)
//   - GET   /prompts/{id}                          (prompt and all versions)
//   - POST  /prompts/{id}/render                   (preview with variables)
//   - PATCH /prompts/{id}/active                   (toggle)
//   - POST  /prompt-families/{promptId}/versions   (new active version)
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/services"
)

// RenderPromptRequest carries the values substituted into {placeholders}.
type RenderPromptRequest struct {
	Variables map[string]string `json:"variables" binding:"omitempty,dive,keys,varname,endkeys"`
}

// ToggleActiveRequest sets a prompt row's active flag.
type ToggleActiveRequest struct {
	// Active is required; a pointer tells false apart from missing.
	Active *bool `json:"active" binding:"required" example:"false"`
}

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List prompts (paginated)
// @Description Returns every prompt version, most recently updated first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Prompts
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       system         query   string  false  "Owning system, e.g. content-engine"
// @Param       category       query   string  false  "Prompt category"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.Prompt]
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /prompts [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	var f filters.PromptFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	if checkETag(c, "prompts", filters.Key(f.Encode()), page, pageSize, func() (int64, *time.Time, error) {
		return h.prompts.Stats(ctx, f)
	}) {
		return
	}

	items, total, err := h.prompts.ListPage(ctx, f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}

// CreatePrompt godoc
// @ID          createPrompt
// @Summary     Create a prompt family
// @Description Stores version 1 as active. prompt_id defaults to a slug of name; variables default to the content's {placeholders}.
// @Tags        Prompts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  services.PromptInput  true  "Prompt payload"
// @Success     201  {object}  domain.Prompt
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or duplicate prompt_id"
// @Router      /prompts [post]
func (h *Handlers) CreatePrompt(c *gin.Context) {
	var in services.PromptInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.prompts.Create(c.Request.Context(), in)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetPrompt godoc
// @ID          getPrompt
// @Summary     Get a prompt with its versions
// @Tags        Prompts
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Prompt row id"
// @Success     200  {object}  services.PromptDetail
// @Failure     404  {object}  handlers.ErrorResponse  "Prompt not found"
// @Router      /prompts/{id} [get]
func (h *Handlers) GetPrompt(c *gin.Context) {
	d, err := h.prompts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, d)
}

// RenderPrompt godoc
// @ID          renderPrompt
// @Summary     Preview a prompt
// @Description Substitutes the given variables. Placeholders without a value are kept and listed in missing.
// @Tags        Prompts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                         true  "Prompt row id"
// @Param       body  body  handlers.RenderPromptRequest   true  "Variables"
// @Success     200  {object}  services.RenderResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Prompt not found"
// @Router      /prompts/{id}/render [post]
func (h *Handlers) RenderPrompt(c *gin.Context) {
	var req RenderPromptRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.prompts.Render(c.Request.Context(), c.Param("id"), req.Variables)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}

// TogglePromptActive godoc
// @ID          togglePromptActive
// @Summary     Activate or deactivate a prompt version
// @Tags        Prompts
// @Accept      json
// @Security    BearerAuth
// @Param       id    path  string                        true  "Prompt row id"
// @Param       body  body  handlers.ToggleActiveRequest  true  "New state"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Prompt not found"
// @Router      /prompts/{id}/active [patch]
func (h *Handlers) TogglePromptActive(c *gin.Context) {
	var req ToggleActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.prompts.ToggleActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	noContent(c)
}

// CreatePromptVersion godoc
// @ID          createPromptVersion
// @Summary     Add a version to a prompt family
// @Description Atomically stores max(version)+1 as the only active version of the family. An unknown family starts at version 1.
// @Tags        Prompts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       promptId  path  string                true  "Prompt family id (slug)"
// @Param       body      body  services.PromptInput  true  "New version"
// @Success     201  {object}  domain.Prompt
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Version created concurrently; retry"
// @Router      /prompt-families/{promptId}/versions [post]
func (h *Handlers) CreatePromptVersion(c *gin.Context) {
	var in services.PromptInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.prompts.UpdateVersion(c.Request.Context(), c.Param("promptId"), in)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, p)
}
