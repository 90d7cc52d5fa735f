package expedition

import (
	"errors"
	"fmt"
	"strings"
)

var ErrRequirementsNotMet = errors.New("requirements not met")

type RequirementType string

const (
	RequirePlayerLevel RequirementType = "player_level"
	RequireMoney       RequirementType = "money"
	RequireItem        RequirementType = "item"
	RequireTrustLevel  RequirementType = "trust_level"
	RequireStage       RequirementType = "stage"
	RequireSkill       RequirementType = "skill"
	RequireCooldown    RequirementType = "cooldown"
)

type Requirement struct {
	Type     RequirementType `json:"type"`
	Value    int             `json:"value,omitempty"`
	Item     string          `json:"item,omitempty"`
	Skill    Skill           `json:"skill,omitempty"`
	Stages   []Stage         `json:"stages,omitempty"`
	Optional bool            `json:"optional,omitempty"`
}

// Subject is everything a requirement may be checked against. Player is nil
// when no economy snapshot is available; economy requirements then fail.
type Subject struct {
	Trainer Trainer
	Player  *PlayerState
	Stage   Stage
}

type RequirementFailure struct {
	Type     RequirementType `json:"type"`
	Required string          `json:"required"`
	Actual   string          `json:"actual"`
	Message  string          `json:"message"`
}

func Evaluate(req Requirement, s Subject) (bool, RequirementFailure) {
	switch req.Type {
	case RequirePlayerLevel:
		actual := 0
		if s.Player != nil {
			actual = s.Player.Level
		}
		return atLeast(req, actual, "player level")
	case RequireMoney:
		actual := 0
		if s.Player != nil {
			actual = s.Player.Money
		}
		return atLeast(req, actual, "money")
	case RequireItem:
		need := req.Value
		if need <= 0 {
			need = 1
		}
		have := 0
		if s.Player != nil && s.Player.Inventory != nil {
			have = s.Player.Inventory[req.Item]
		}
		if have >= need {
			return true, RequirementFailure{}
		}
		return false, RequirementFailure{
			Type:     req.Type,
			Required: fmt.Sprintf("%s x%d", req.Item, need),
			Actual:   fmt.Sprintf("%s x%d", req.Item, have),
			Message:  fmt.Sprintf("requires %d %s", need, req.Item),
		}
	case RequireTrustLevel:
		return atLeast(req, s.Trainer.Trust, "trust level")
	case RequireSkill:
		return atLeast(req, s.Trainer.SkillLevel(req.Skill), string(req.Skill)+" skill")
	case RequireStage:
		for _, st := range req.Stages {
			if st == s.Stage {
				return true, RequirementFailure{}
			}
		}
		names := make([]string, 0, len(req.Stages))
		for _, st := range req.Stages {
			names = append(names, string(st))
		}
		return false, RequirementFailure{
			Type:     req.Type,
			Required: strings.Join(names, "|"),
			Actual:   string(s.Stage),
			Message:  fmt.Sprintf("only available during %s", strings.Join(names, ", ")),
		}
	default:
		return false, RequirementFailure{
			Type:    req.Type,
			Message: fmt.Sprintf("unsupported requirement type %q", req.Type),
		}
	}
}

func atLeast(req Requirement, actual int, label string) (bool, RequirementFailure) {
	if actual >= req.Value {
		return true, RequirementFailure{}
	}
	return false, RequirementFailure{
		Type:     req.Type,
		Required: fmt.Sprintf(">= %d", req.Value),
		Actual:   fmt.Sprintf("%d", actual),
		Message:  fmt.Sprintf("%s %d is below required %d", label, actual, req.Value),
	}
}

// CheckRequirements evaluates every requirement; it returns the mandatory
// failures and the count of optional requirements that were satisfied.
func CheckRequirements(reqs []Requirement, s Subject) (failures []RequirementFailure, optionalMet int) {
	for _, req := range reqs {
		ok, failure := Evaluate(req, s)
		if req.Optional {
			if ok {
				optionalMet++
			}
			continue
		}
		if !ok {
			failures = append(failures, failure)
		}
	}
	return failures, optionalMet
}

type RequirementError struct {
	Subject  string
	Failures []RequirementFailure
}

func (e *RequirementError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, string(f.Type))
	}
	return fmt.Sprintf("%s: %s (%s)", ErrRequirementsNotMet.Error(), e.Subject, strings.Join(parts, ", "))
}

func (e *RequirementError) Unwrap() error {
	return ErrRequirementsNotMet
}

func (e *RequirementError) Has(t RequirementType) bool {
	for _, f := range e.Failures {
		if f.Type == t {
			return true
		}
	}
	return false
}
