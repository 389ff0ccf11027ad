package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_StableAndFloored(t *testing.T) {
	assert.Equal(t, 87, Bucket("new-checkout", "user-1"))
	assert.Equal(t, 65, Bucket("new-checkout", "user-2"))
	assert.Equal(t, 58, Bucket("beta", "alice"))
	assert.Equal(t, 21, Bucket("beta", "bob"))
	assert.Equal(t, Bucket("beta", "bob"), Bucket("beta", "bob"))
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rule, err := NewTargetingRule("r1", "beta", "country", "in", "PL, DE", now)
	require.NoError(t, err)

	enabled := func(rollout int) *FeatureFlag {
		return &FeatureFlag{Name: "beta", Enabled: true, RolloutPercentage: rollout}
	}

	cases := map[string]struct {
		flag   *FeatureFlag
		rules  []TargetingRule
		user   string
		attrs  map[string]string
		want   bool
		reason string
	}{
		"missing flag":  {flag: nil, user: "alice", want: false, reason: "flag not found"},
		"disabled":      {flag: &FeatureFlag{Name: "beta", RolloutPercentage: 100}, user: "alice", reason: "flag disabled"},
		"rule matched":  {flag: enabled(0), rules: []TargetingRule{*rule}, user: "alice", attrs: map[string]string{"country": "DE"}, want: true, reason: "targeting rule matched: country in PL, DE"},
		"full rollout":  {flag: enabled(100), user: "alice", want: true, reason: "rollout 100%"},
		"in bucket":     {flag: enabled(30), user: "bob", want: true, reason: "in rollout bucket 21 < 30%"},
		"outside":       {flag: enabled(30), user: "alice", want: false, reason: "outside rollout bucket 58 >= 30%"},
		"rule mismatch": {flag: enabled(30), rules: []TargetingRule{*rule}, user: "alice", attrs: map[string]string{"country": "FR"}, reason: "outside rollout bucket 58 >= 30%"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Evaluate(tc.flag, tc.rules, tc.user, tc.attrs)
			assert.Equal(t, tc.want, got.Enabled)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestTargetingRule_Operators(t *testing.T) {
	cases := []struct {
		op, value, actual string
		want              bool
	}{
		{"equals", "gold", "gold", true},
		{"equals", "gold", "silver", false},
		{"contains", "@acme", "bob@acme.io", true},
		{"in", "a,b,c", "b", true},
		{"in", "a,b,c", "d", false},
		{"starts_with", "CUST-1", "CUST-101", true},
		{"starts_with", "CUST-2", "CUST-101", false},
	}
	for _, tc := range cases {
		rule, err := NewTargetingRule("id", "flag", "attr", tc.op, tc.value, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, tc.want, rule.Matches(map[string]string{"attr": tc.actual}), "%s %s %s", tc.actual, tc.op, tc.value)
	}

	rule, err := NewTargetingRule("id", "flag", "attr", "equals", "x", time.Time{})
	require.NoError(t, err)
	assert.False(t, rule.Matches(map[string]string{}))

	_, err = NewTargetingRule("id", "flag", "attr", "regex", ".*", time.Time{})
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestFeatureFlag_Update(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	flag, err := NewFeatureFlag("beta", "beta users", created)
	require.NoError(t, err)
	assert.False(t, flag.Enabled)
	assert.Equal(t, 100, flag.RolloutPercentage)

	later := created.Add(time.Hour)
	on, rollout := true, 40
	require.NoError(t, flag.Update(&on, &rollout, later))
	assert.True(t, flag.Enabled)
	assert.Equal(t, 40, flag.RolloutPercentage)
	assert.Equal(t, later, flag.UpdatedAt)

	bad := 101
	assert.ErrorIs(t, flag.Update(nil, &bad, later), ErrInvalidRollout)
	assert.Equal(t, 40, flag.RolloutPercentage)

	_, err = NewFeatureFlag("  ", "", created)
	assert.ErrorIs(t, err, ErrEmptyFlagName)
}
