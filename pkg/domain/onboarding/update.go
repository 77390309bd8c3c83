package onboarding

import "time"

// UpdateStepCompletion returns a new state with the step's completion flag
// set. Completing a step stamps its completedAt; un-completing clears it.
// Progress and the aggregate complete flag are recomputed; the top-level
// completedAt only changes when the aggregate condition actually flips, so a
// no-op update never clobbers an existing completion timestamp.
//
// Returns InvalidStepError if the step is not part of the state.
func UpdateStepCompletion(s State, step Step, isComplete bool) (State, error) {
	if _, ok := s.Steps[step]; !ok {
		return State{}, InvalidStepError(step)
	}

	out := s.Clone()

	st := out.Steps[step]
	st.IsComplete = isComplete
	if isComplete {
		now := time.Now().UTC()
		st.CompletedAt = &now
	} else {
		st.CompletedAt = nil
	}
	out.Steps[step] = st

	out.Progress = CalculateProgress(out)

	allRequiredComplete := IsComplete(out)
	switch {
	case allRequiredComplete && !out.IsComplete:
		now := time.Now().UTC()
		out.IsComplete = true
		out.CompletedAt = &now
	case !allRequiredComplete && out.IsComplete:
		out.IsComplete = false
		out.CompletedAt = nil
	}

	return out, nil
}

// UpdateFeatureStatus returns a new state with the feature's flags updated.
// Nil arguments leave the corresponding flag untouched; this is a partial
// update, not "set to false".
//
// Returns InvalidFeatureError if the feature is not part of the state.
func UpdateFeatureStatus(s State, feature Feature, introduced, interacted *bool) (State, error) {
	if _, ok := s.Features[feature]; !ok {
		return State{}, InvalidFeatureError(feature)
	}

	out := s.Clone()

	fs := out.Features[feature]
	if introduced != nil {
		fs.Introduced = *introduced
	}
	if interacted != nil {
		fs.Interacted = *interacted
	}
	out.Features[feature] = fs

	return out, nil
}

// AdvanceStep returns a new state with currentStep moved to target, provided
// the move follows the transition graph and the target is not already
// complete. States that fail either condition are returned unchanged.
func AdvanceStep(s State, target Step) State {
	if !IsValidTransition(s.CurrentStep, target) {
		return s
	}
	if st, ok := s.Steps[target]; !ok || st.IsComplete {
		return s
	}
	out := s.Clone()
	out.CurrentStep = target
	return out
}

// CompleteAll returns a new state with every step marked complete, as the
// skip path does. Progress becomes 100 and the aggregate flag flips on.
func CompleteAll(s State) State {
	out := s.Clone()
	now := time.Now().UTC()

	for step, st := range out.Steps {
		st.IsComplete = true
		if st.CompletedAt == nil {
			t := now
			st.CompletedAt = &t
		}
		out.Steps[step] = st
	}

	out.Progress = CalculateProgress(out)
	if !out.IsComplete {
		out.IsComplete = true
		out.CompletedAt = &now
	}
	out.CurrentStep = StepIntegrations

	return out
}
