// Package password inspects pages for a password field and evidence of a strength policy.
package password

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// Reasons reported in PasswordPolicyResult.Reason
const (
	ReasonNoInput        = "no_password_input"
	ReasonFetchFailed    = "fetch_failed"
	ReasonAttributes     = "input_constraints"
	ReasonStrengthScript = "strength_script"
	ReasonKeywords       = "policy_text"
	ReasonNoEvidence     = "no_evidence"
)

// Checker decides whether a page enforces a password strength policy
type Checker struct {
	source          page.Source
	policyKeywords  []string
	strengthScripts []string
	log             *logrus.Entry
}

// NewChecker creates a Checker. policyKeywords and strengthScripts must be lower case.
func NewChecker(source page.Source, policyKeywords, strengthScripts []string, log *logrus.Entry) *Checker {
	return &Checker{
		source:          source,
		policyKeywords:  policyKeywords,
		strengthScripts: strengthScripts,
		log:             log.WithField("component", "password"),
	}
}

// Check loads rawURL and inspects it. A load failure yields {false, false, true}.
func (c *Checker) Check(ctx context.Context, rawURL string) models.PasswordPolicyResult {
	view, err := c.source.Load(ctx, rawURL)
	if err != nil {
		c.log.WithFields(logrus.Fields{"url": rawURL, "error_type": utils.CategorizeError(err)}).Warnf("Password page unavailable: %v", err)
		return models.PasswordPolicyResult{Error: true, Reason: ReasonFetchFailed}
	}
	return c.Inspect(view)
}

// Inspect applies the policy rules to an already loaded page.
// Evidence is accepted in order: input constraints, a strength-meter script, policy wording.
func (c *Checker) Inspect(view page.View) models.PasswordPolicyResult {
	doc := view.Document()
	inputs := doc.Find("input[type]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "password")
	})
	if inputs.Length() == 0 {
		return models.PasswordPolicyResult{Reason: ReasonNoInput}
	}

	result := models.PasswordPolicyResult{PasswordInputPresent: true, Reason: ReasonNoEvidence}
	switch {
	case hasConstraintAttributes(inputs):
		result.PassedChecks, result.Reason = true, ReasonAttributes
	case c.hasStrengthScript(doc):
		result.PassedChecks, result.Reason = true, ReasonStrengthScript
	case c.hasPolicyText(view.FullText()):
		result.PassedChecks, result.Reason = true, ReasonKeywords
	}

	c.log.WithFields(logrus.Fields{
		"url":    view.URL().String(),
		"passed": result.PassedChecks,
		"reason": result.Reason,
	}).Debug("Password field inspected")
	return result
}

// hasConstraintAttributes is true when any password input declares minlength >= 1 or a pattern
func hasConstraintAttributes(inputs *goquery.Selection) bool {
	found := false
	inputs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("minlength"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 {
				found = true
				return false
			}
		}
		if v, ok := s.Attr("pattern"); ok && strings.TrimSpace(v) != "" {
			found = true
			return false
		}
		return true
	})
	return found
}

// hasStrengthScript looks for a known strength-meter library in script sources,
// or inline script code mentioning both "password" and "strength"
func (c *Checker) hasStrengthScript(doc *goquery.Document) bool {
	found := false
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if src, ok := s.Attr("src"); ok {
			lower := strings.ToLower(src)
			for _, lib := range c.strengthScripts {
				if strings.Contains(lower, lib) {
					found = true
					return false
				}
			}
			return true
		}
		code := strings.ToLower(s.Text())
		if strings.Contains(code, "password") && strings.Contains(code, "strength") {
			found = true
			return false
		}
		for _, lib := range c.strengthScripts {
			if strings.Contains(code, lib) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func (c *Checker) hasPolicyText(text string) bool {
	for _, kw := range c.policyKeywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
