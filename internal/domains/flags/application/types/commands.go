package types

type CreateFlagInput struct {
	Name        string
	Description string
}

// UpdateFlagInput leaves nil fields untouched.
type UpdateFlagInput struct {
	Enabled           *bool
	RolloutPercentage *int
}

type AddRuleInput struct {
	Attribute string
	Operator  string
	Value     string
}
