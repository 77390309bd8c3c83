package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerRequest struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"required,min=1,max=100"`
	Role      string `validate:"omitempty,role"`
}

type onboardingRequest struct {
	Step       string `validate:"required,onboarding_step"`
	Experience string `validate:"omitempty,experience_level"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid struct", func(t *testing.T) {
		err := v.Validate(registerRequest{
			Email:     "ada@example.com",
			FirstName: "Ada",
			Role:      "pro",
		})
		assert.NoError(t, err)
	})

	t.Run("collects all field errors", func(t *testing.T) {
		err := v.Validate(registerRequest{Email: "nope", Role: "superuser"})
		require.Error(t, err)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Len(t, verrs, 3)
	})

	t.Run("field names are snake_case", func(t *testing.T) {
		err := v.Validate(registerRequest{Email: "ada@example.com"})
		require.Error(t, err)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		require.Len(t, verrs, 1)
		assert.Equal(t, "first_name", verrs[0].Field)
	})
}

func TestValidator_CustomTags(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   any
		wantErr bool
	}{
		{"known role", registerRequest{Email: "a@b.co", FirstName: "A", Role: "team_admin"}, false},
		{"unknown role", registerRequest{Email: "a@b.co", FirstName: "A", Role: "root"}, true},
		{"known step", onboardingRequest{Step: "projectSetup"}, false},
		{"unknown step", onboardingRequest{Step: "billing"}, true},
		{"known experience", onboardingRequest{Step: "profile", Experience: "beginner"}, false},
		{"unknown experience", onboardingRequest{Step: "profile", Experience: "guru"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_SettingsSectionTag(t *testing.T) {
	v := New()

	type req struct {
		Section string `validate:"required,settings_section"`
	}

	assert.NoError(t, v.Validate(req{Section: "notifications"}))
	assert.Error(t, v.Validate(req{Section: "billing"}))
}

func TestValidator_SlugTag(t *testing.T) {
	v := New()

	type req struct {
		Slug string `validate:"required,slug"`
	}

	assert.NoError(t, v.Validate(req{Slug: "my-project-123"}))
	assert.Error(t, v.Validate(req{Slug: "My Project"}))
	assert.Error(t, v.Validate(req{Slug: "-leading"}))
	assert.Error(t, v.Validate(req{Slug: "double--hyphen"}))
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "is required"},
		{Field: "role", Message: "must be one of: user, pro"},
	}
	assert.Equal(t, "email: is required; role: must be one of: user, pro", errs.Error())
	assert.Empty(t, ValidationErrors{}.Error())
}
