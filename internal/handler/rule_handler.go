package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/rules"
	"github.com/hobbyist/hobbyist-api/internal/service"
	"github.com/hobbyist/hobbyist-api/internal/validator"
)

const maxDryRunBody = 64 << 10

// RuleHandler exposes the business validator.
type RuleHandler struct {
	ruleService *service.RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService *service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// Validate godoc
// POST /api/v1/validate/:category
// Evaluates the body against a rule category without side effects. The
// result is returned as data whether or not it is valid. Optional
// ?instructor_id= and ?class_id= fill the rule context.
func (h *RuleHandler) Validate(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDryRunBody))
	if err != nil {
		middleware.Abort(c, apperror.Validation("Unable to read request body", "body", nil).Wrap(err))
		return
	}

	rc := rules.RuleContext{UserID: cl.UserID}
	if rc.InstructorID, err = queryID(c, "instructor_id"); err != nil {
		middleware.Abort(c, err)
		return
	}
	if rc.ClassID, err = queryID(c, "class_id"); err != nil {
		middleware.Abort(c, err)
		return
	}
	res, err := h.ruleService.DryRun(c.Request.Context(), rules.Category(c.Param("category")), raw, rc)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ListRules godoc
// GET /api/v1/admin/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"categories": h.ruleService.List()})
}

// SetRuleEnabledRequest toggles a rule.
type SetRuleEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetRuleEnabled godoc
// PATCH /api/v1/admin/rules/:category/:name
func (h *RuleHandler) SetRuleEnabled(c *gin.Context) {
	var req SetRuleEnabledRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	category, name := rules.Category(c.Param("category")), c.Param("name")
	if err := h.ruleService.SetEnabled(category, name, *req.Enabled); err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"category": category, "name": name, "enabled": *req.Enabled})
}
