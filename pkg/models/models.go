package models

import (
	"encoding/json"
	"time"
)

// CheckResult is one line of the compliance checklist returned for a crawl
type CheckResult struct {
	Check  string  `json:"check"`
	Passed bool    `json:"passed"`
	Error  *string `json:"error"` // Serialized as null when absent
}

// NewCheckResult builds a result with no error
func NewCheckResult(check string, passed bool) CheckResult {
	return CheckResult{Check: check, Passed: passed}
}

// NewFailedCheck builds a failing result carrying an error message
func NewFailedCheck(check string, err error) CheckResult {
	msg := err.Error()
	return CheckResult{Check: check, Passed: false, Error: &msg}
}

// PasswordPolicyResult is the verdict of inspecting one page for a password field
type PasswordPolicyResult struct {
	PasswordInputPresent bool   `json:"password_input_present"`
	PassedChecks         bool   `json:"passed_checks"`
	Error                bool   `json:"error"`
	Reason               string `json:"reason,omitempty"` // Which rule matched, for logs
}

// Confirmed reports whether the result counts toward the run's password verdict
func (r PasswordPolicyResult) Confirmed() bool {
	return r.PasswordInputPresent && !r.Error
}

// ComplianceSignals accumulates the per-run verdicts while the frontier walks a site.
// Privacy and refusal only ever move from false to true; consent tracks the latest page.
type ComplianceSignals struct {
	HasPrivacyPolicy      bool
	HasCookieRefusal      bool
	RespectsCookieConsent bool
	PasswordPolicy        *PasswordPolicyResult // First confirmed result, nil until one is found
}

// Observe folds one page's verdicts into the accumulator
func (s *ComplianceSignals) Observe(privacy, refusal, consent bool) {
	s.HasPrivacyPolicy = s.HasPrivacyPolicy || privacy
	s.HasCookieRefusal = s.HasCookieRefusal || refusal
	s.RespectsCookieConsent = consent
}

// ObservePassword records r if no confirmed result has been recorded yet
func (s *ComplianceSignals) ObservePassword(r PasswordPolicyResult) bool {
	if s.PasswordPolicy != nil || !r.Confirmed() {
		return false
	}
	s.PasswordPolicy = &r
	return true
}

// TaskStatus is the answer to a poll for a task that exists
type TaskStatus struct {
	State   TaskState
	Results []CheckResult
}

// Ready reports whether results are available
func (s TaskStatus) Ready() bool {
	return s.State == TaskStateReady
}

// MarshalJSON renders {ready:false} or {ready:true, results:[...]}
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	if !s.Ready() {
		return json.Marshal(struct {
			Ready bool `json:"ready"`
		}{false})
	}
	results := s.Results
	if results == nil {
		results = []CheckResult{}
	}
	return json.Marshal(struct {
		Ready   bool          `json:"ready"`
		Results []CheckResult `json:"results"`
	}{true, results})
}

// RunStats summarizes one frontier run for logs and metrics
type RunStats struct {
	Seed           string
	PagesVisited   int
	FetchFailures  int
	RobotsDenials  int
	OffHost        int // Pages whose redirect left the seed host
	LinksEnqueued  int
	URLsSeen       int // Distinct normalized URLs recorded in the visited set
	SignupPages    int
	Duration       time.Duration
	TerminalReason string // "budget", "exhausted" or a seed failure category
}

// WorkItem is one URL waiting in a run's frontier
type WorkItem struct {
	URL   string // Normalized absolute URL
	Depth int    // Link distance from the seed (seed = 0)
}
