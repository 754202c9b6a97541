package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckResult_JSONShape(t *testing.T) {
	t.Run("null error", func(t *testing.T) {
		b, err := json.Marshal(NewCheckResult("Privacy Policy", true))
		require.NoError(t, err)
		assert.JSONEq(t, `{"check":"Privacy Policy","passed":true,"error":null}`, string(b))
	})

	t.Run("error message", func(t *testing.T) {
		b, err := json.Marshal(NewFailedCheck("Error accessing URL", errors.New("connection refused")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"check":"Error accessing URL","passed":false,"error":"connection refused"}`, string(b))
	})
}

func TestTaskStatus_MarshalJSON(t *testing.T) {
	t.Run("pending omits results", func(t *testing.T) {
		b, err := json.Marshal(TaskStatus{State: TaskStatePending})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ready":false}`, string(b))
	})

	t.Run("ready with results", func(t *testing.T) {
		status := TaskStatus{State: TaskStateReady, Results: []CheckResult{NewCheckResult("x", false)}}
		b, err := json.Marshal(status)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ready":true,"results":[{"check":"x","passed":false,"error":null}]}`, string(b))
	})

	t.Run("ready with nil results renders empty list", func(t *testing.T) {
		b, err := json.Marshal(TaskStatus{State: TaskStateReady})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ready":true,"results":[]}`, string(b))
	})
}

func TestComplianceSignals_Observe(t *testing.T) {
	var s ComplianceSignals

	s.Observe(true, false, true)
	assert.True(t, s.HasPrivacyPolicy)
	assert.False(t, s.HasCookieRefusal)
	assert.True(t, s.RespectsCookieConsent)

	// Privacy and refusal never revert; consent follows the latest page
	s.Observe(false, true, false)
	assert.True(t, s.HasPrivacyPolicy)
	assert.True(t, s.HasCookieRefusal)
	assert.False(t, s.RespectsCookieConsent)

	s.Observe(false, false, true)
	assert.True(t, s.HasPrivacyPolicy)
	assert.True(t, s.HasCookieRefusal)
	assert.True(t, s.RespectsCookieConsent)
}

func TestComplianceSignals_ObservePassword(t *testing.T) {
	var s ComplianceSignals

	assert.False(t, s.ObservePassword(PasswordPolicyResult{PasswordInputPresent: false}))
	assert.False(t, s.ObservePassword(PasswordPolicyResult{PasswordInputPresent: true, Error: true}))
	assert.Nil(t, s.PasswordPolicy)

	assert.True(t, s.ObservePassword(PasswordPolicyResult{PasswordInputPresent: true, PassedChecks: false}))
	// First confirmed result wins
	assert.False(t, s.ObservePassword(PasswordPolicyResult{PasswordInputPresent: true, PassedChecks: true}))
	require.NotNil(t, s.PasswordPolicy)
	assert.False(t, s.PasswordPolicy.PassedChecks)
}

func TestLabelsFor(t *testing.T) {
	assert.Equal(t, "Privacy Policy", LabelsFor("en").PrivacyPolicy)
	assert.Equal(t, "Política de Privacidade", LabelsFor("pt").PrivacyPolicy)
	assert.Equal(t, "Website inserido não permite a ação de webcrawlers", LabelsFor("pt").CrawlingNotPermitted)
	assert.Equal(t, LabelsFor("en"), LabelsFor("klingon"))
}
