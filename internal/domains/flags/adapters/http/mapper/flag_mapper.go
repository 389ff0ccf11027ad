package mapper

import (
	"time"

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/application/types"
	flagsdomain "github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
)

type Flag struct {
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Enabled           bool      `json:"enabled"`
	RolloutPercentage int       `json:"rolloutPercentage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Rule struct {
	ID        string    `json:"id"`
	FlagName  string    `json:"flagName"`
	Attribute string    `json:"attribute"`
	Operator  string    `json:"operator"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

type Evaluation struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason"`
}

type CreateFlagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateFlagRequest struct {
	Enabled           *bool `json:"enabled"`
	RolloutPercentage *int  `json:"rolloutPercentage"`
}

type AddRuleRequest struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

func (r CreateFlagRequest) ToInput() types.CreateFlagInput {
	return types.CreateFlagInput{Name: r.Name, Description: r.Description}
}

func (r UpdateFlagRequest) ToInput() types.UpdateFlagInput {
	return types.UpdateFlagInput{Enabled: r.Enabled, RolloutPercentage: r.RolloutPercentage}
}

func (r AddRuleRequest) ToInput() types.AddRuleInput {
	return types.AddRuleInput{Attribute: r.Attribute, Operator: r.Operator, Value: r.Value}
}

func FromDomainFlag(flag *flagsdomain.FeatureFlag) Flag {
	if flag == nil {
		return Flag{}
	}
	return Flag{
		Name:              flag.Name,
		Description:       flag.Description,
		Enabled:           flag.Enabled,
		RolloutPercentage: flag.RolloutPercentage,
		CreatedAt:         flag.CreatedAt,
		UpdatedAt:         flag.UpdatedAt,
	}
}

func FromDomainFlags(flags []*flagsdomain.FeatureFlag) []Flag {
	out := make([]Flag, 0, len(flags))
	for _, flag := range flags {
		out = append(out, FromDomainFlag(flag))
	}
	return out
}

func FromDomainRule(rule flagsdomain.TargetingRule) Rule {
	return Rule{
		ID:        rule.ID,
		FlagName:  rule.FlagName,
		Attribute: rule.Attribute,
		Operator:  string(rule.Operator),
		Value:     rule.Value,
		CreatedAt: rule.CreatedAt,
	}
}

func FromDomainRules(rules []flagsdomain.TargetingRule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, FromDomainRule(rule))
	}
	return out
}

func FromDomainEvaluation(eval flagsdomain.Evaluation) Evaluation {
	return Evaluation{Enabled: eval.Enabled, Reason: eval.Reason}
}
