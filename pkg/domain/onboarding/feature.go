package onboarding

// Feature names a product feature tracked during onboarding.
type Feature string

// Features introduced during onboarding.
const (
	FeaturePlanGeneration    Feature = "planGeneration"
	FeatureClaudeAssistant   Feature = "claudeAssistant"
	FeatureProjectManagement Feature = "projectManagement"
	FeatureCodeGeneration    Feature = "codeGeneration"
	FeatureDeployment        Feature = "deployment"
)

// Features returns all tracked features.
func Features() []Feature {
	return []Feature{
		FeaturePlanGeneration,
		FeatureClaudeAssistant,
		FeatureProjectManagement,
		FeatureCodeGeneration,
		FeatureDeployment,
	}
}

// IsValid checks if the feature is a known feature name.
func (f Feature) IsValid() bool {
	switch f {
	case FeaturePlanGeneration, FeatureClaudeAssistant, FeatureProjectManagement,
		FeatureCodeGeneration, FeatureDeployment:
		return true
	}
	return false
}

// String returns the string representation of the feature.
func (f Feature) String() string {
	return string(f)
}

// FeatureStatus tracks whether a feature has been shown to the user and
// whether the user has tried it.
type FeatureStatus struct {
	Introduced bool `json:"introduced"`
	Interacted bool `json:"interacted"`
}
