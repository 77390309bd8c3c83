package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name       string
		profile    Profile
		wantValid  bool
		wantErrors int
	}{
		{
			name: "valid full profile",
			profile: Profile{
				Name:       Name{FirstName: "Ada", LastName: "Lovelace"},
				Company:    "Analytical Engines",
				JobTitle:   "Engineer",
				Experience: ExperienceAdvanced,
				TeamSize:   "12",
			},
			wantValid: true,
		},
		{
			name: "names only",
			profile: Profile{
				Name: Name{FirstName: "Ada", LastName: "Lovelace"},
			},
			wantValid: true,
		},
		{
			name: "everything wrong at once",
			profile: Profile{
				Name:       Name{FirstName: "", LastName: ""},
				Experience: "bogus",
				TeamSize:   "abc",
			},
			wantValid:  false,
			wantErrors: 4,
		},
		{
			name: "whitespace names rejected",
			profile: Profile{
				Name: Name{FirstName: "   ", LastName: "\t"},
			},
			wantValid:  false,
			wantErrors: 2,
		},
		{
			name: "empty experience is allowed",
			profile: Profile{
				Name: Name{FirstName: "Ada", LastName: "Lovelace"},
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateProfile(tt.profile)
			assert.Equal(t, tt.wantValid, res.IsValid)
			assert.Len(t, res.Errors, tt.wantErrors)
		})
	}
}

func TestValidateProfile_AccumulatesAllErrors(t *testing.T) {
	res := ValidateProfile(Profile{Experience: "wizard", TeamSize: "many"})

	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "First name is required")
	assert.Contains(t, res.Errors, "Last name is required")
	assert.Contains(t, res.Errors, "Experience must be one of: beginner, intermediate, advanced")
	assert.Contains(t, res.Errors, "Team size must be a number")
}

func TestValidatePreferences(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]any
		wantValid  bool
		wantErrors int
	}{
		{
			name:      "empty update",
			fields:    map[string]any{},
			wantValid: true,
		},
		{
			name: "booleans accepted",
			fields: map[string]any{
				"showTutorials":      true,
				"showTips":           false,
				"enableEmailUpdates": true,
			},
			wantValid: true,
		},
		{
			name: "string where boolean expected",
			fields: map[string]any{
				"showTutorials": "yes",
			},
			wantValid:  false,
			wantErrors: 1,
		},
		{
			name: "numbers are not booleans",
			fields: map[string]any{
				"showTips":           float64(1),
				"enableEmailUpdates": float64(0),
			},
			wantValid:  false,
			wantErrors: 2,
		},
		{
			name: "unknown keys ignored",
			fields: map[string]any{
				"theme": "dark",
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePreferences(tt.fields)
			assert.Equal(t, tt.wantValid, res.IsValid)
			assert.Len(t, res.Errors, tt.wantErrors)
		})
	}
}
