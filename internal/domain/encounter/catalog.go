package encounter

import (
	"fmt"
	"sort"

	"wildtrek/internal/domain/expedition"
)

type Catalog struct {
	templates []Template
	byID      map[string]int
}

func NewCatalog(templates []Template) (Catalog, error) {
	c := Catalog{byID: make(map[string]int, len(templates))}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return Catalog{}, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate template id %s", t.ID)
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

func MustCatalog(templates []Template) Catalog {
	c, err := NewCatalog(templates)
	if err != nil {
		panic(err)
	}
	return c
}

func DefaultCatalog() Catalog {
	return MustCatalog(DefaultTemplates())
}

func (c Catalog) Templates() []Template {
	return append([]Template(nil), c.templates...)
}

func (c Catalog) Template(id string) (Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, expedition.NewUnknownIDError("event template", id, c.IDs())
	}
	return c.templates[i], nil
}

func (c Catalog) IDs() []string {
	out := make([]string, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.ID)
	}
	sort.Strings(out)
	return out
}

func req(t expedition.RequirementType, v int) expedition.Requirement {
	return expedition.Requirement{Type: t, Value: v}
}

func optional(r expedition.Requirement) expedition.Requirement {
	r.Optional = true
	return r
}

func itemReq(item string) expedition.Requirement {
	return expedition.Requirement{Type: expedition.RequireItem, Item: item, Value: 1}
}

func skillReq(s expedition.Skill, v int) expedition.Requirement {
	return expedition.Requirement{Type: expedition.RequireSkill, Skill: s, Value: v}
}

// DefaultTemplates is the built-in event set.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:      "wild_encounter",
			Type:    expedition.EventEncounter,
			Rarity:  RarityCommon,
			Message: "A wild Pidgey flutters out of the tall grass.",
			Variants: []string{
				"Rustling in the grass reveals a curious Pidgey.",
				"A Pidgey lands on a branch right in front of the trainer.",
			},
			Conditions: []Condition{
				{Kind: CondStageIn, Weight: 0.6, Stages: []expedition.Stage{expedition.StageEarly, expedition.StageMiddle, expedition.StageLate}},
				{Kind: CondRiskAtLeast, Weight: 0.2, Risk: expedition.RiskLow},
			},
			CooldownMinutes: 2,
			Choices: []expedition.Choice{
				{ID: "throw_ball", Text: "Throw a Poké Ball", SuccessRate: 0.55, Skill: expedition.SkillCapture, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "pidgey"},
					Requirements: []expedition.Requirement{optional(itemReq("great_ball"))}},
				{ID: "observe", Text: "Observe and take notes", SuccessRate: 0.8, Skill: expedition.SkillResearch, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 15}},
			},
		},
		{
			ID:       "berry_bush",
			Type:     expedition.EventDiscovery,
			Rarity:   RarityCommon,
			Message:  "The trainer spots a bush heavy with Oran berries.",
			Variants: []string{"A patch of ripe berries grows beside the trail."},
			Conditions: []Condition{
				{Kind: CondSkillAtLeast, Weight: 0.5, Skill: expedition.SkillForaging, Min: 1},
				{Kind: CondModeIn, Weight: 0.5, Modes: []expedition.Mode{expedition.ModeSafe, expedition.ModeBalanced, expedition.ModeExploration}},
			},
			CooldownMinutes: 5,
			Choices: []expedition.Choice{
				{ID: "harvest", Text: "Harvest carefully", SuccessRate: 0.75, Skill: expedition.SkillForaging, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectItem, Amount: 3, Target: "oran_berry"}},
				{ID: "move_on", Text: "Keep moving", SuccessRate: 0.9, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.02}},
			},
		},
		{
			ID:       "rockslide",
			Type:     expedition.EventDanger,
			Rarity:   RarityUncommon,
			Message:  "Loose rocks start tumbling down the slope!",
			Variants: []string{"A rumble overhead: a rockslide is coming."},
			Conditions: []Condition{
				{Kind: CondRiskAtLeast, Weight: 0.7, Risk: expedition.RiskMedium},
				{Kind: CondStageIn, Weight: 0.3, Stages: []expedition.Stage{expedition.StageMiddle, expedition.StageLate}},
			},
			Locations:       []string{"mt_moon", "cerulean_cave", "victory_road"},
			CooldownMinutes: 15,
			Choices: []expedition.Choice{
				{ID: "take_cover", Text: "Take cover", SuccessRate: 0.7, Skill: expedition.SkillSurvival, RiskTier: expedition.RiskTierMedium,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 25}},
				{ID: "dash_through", Text: "Dash through", SuccessRate: 0.4, Skill: expedition.SkillSurvival, RiskTier: expedition.RiskTierHigh,
					Effect: expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.05}},
				{ID: "use_escape_rope", Text: "Use an Escape Rope", SuccessRate: 0.9, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.01},
					Requirements: []expedition.Requirement{itemReq("escape_rope")}},
			},
		},
		{
			ID:      "sudden_storm",
			Type:    expedition.EventWeather,
			Rarity:  RarityUncommon,
			Message: "Dark clouds roll in and heavy rain begins to fall.",
			Variants: []string{
				"A thunderstorm breaks over the route.",
				"Wind and rain make the path treacherous.",
			},
			Conditions: []Condition{
				{Kind: CondStageIn, Weight: 0.5, Stages: []expedition.Stage{expedition.StageEarly, expedition.StageMiddle}},
				{Kind: CondHourBetween, Weight: 0.5, Min: 12, Max: 20},
			},
			CooldownMinutes: 20,
			Choices: []expedition.Choice{
				{ID: "make_camp", Text: "Make camp and wait it out", SuccessRate: 0.85, Skill: expedition.SkillSurvival, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 10}},
				{ID: "push_on", Text: "Push on through the storm", SuccessRate: 0.45, Skill: expedition.SkillExploration, RiskTier: expedition.RiskTierHigh,
					Effect: expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.06}},
			},
		},
		{
			ID:       "lost_hiker",
			Type:     expedition.EventSocial,
			Rarity:   RarityCommon,
			Message:  "A hiker waves the trainer down, clearly lost.",
			Variants: []string{"A tired hiker asks for directions back to town."},
			Conditions: []Condition{
				{Kind: CondMinTrainerLevel, Weight: 0.4, Min: 3},
				{Kind: CondStageIn, Weight: 0.6, Stages: []expedition.Stage{expedition.StageEarly, expedition.StageMiddle, expedition.StageLate}},
			},
			CooldownMinutes: 10,
			Choices: []expedition.Choice{
				{ID: "guide_hiker", Text: "Guide them back to the trail", SuccessRate: 0.8, Skill: expedition.SkillExploration, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectMoney, Amount: 150}},
				{ID: "share_map", Text: "Share a copy of the map", SuccessRate: 0.9, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectExperience, Amount: 10},
					Requirements: []expedition.Requirement{optional(itemReq("town_map"))}},
			},
		},
		{
			ID:      "trainer_battle",
			Type:    expedition.EventSocial,
			Rarity:  RarityUncommon,
			Message: "A rival trainer challenges you to a battle!",
			Conditions: []Condition{
				{Kind: CondSkillAtLeast, Weight: 0.5, Skill: expedition.SkillBattle, Min: 2},
				{Kind: CondModeIn, Weight: 0.5, Modes: []expedition.Mode{expedition.ModeBalanced, expedition.ModeAggressive}},
			},
			CooldownMinutes: 15,
			Choices: []expedition.Choice{
				{ID: "accept_battle", Text: "Accept the challenge", SuccessRate: 0.5, Skill: expedition.SkillBattle, RiskTier: expedition.RiskTierMedium,
					CooldownMinutes: 10,
					Effect:          expedition.Effect{Kind: expedition.EffectMoney, Amount: 300},
					Requirements:    []expedition.Requirement{optional(req(expedition.RequireTrustLevel, 50))}},
				{ID: "decline_battle", Text: "Politely decline", SuccessRate: 0.95, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 5}},
			},
		},
		{
			ID:       "hidden_item",
			Type:     expedition.EventDiscovery,
			Rarity:   RarityUncommon,
			Message:  "Something glints beneath a pile of leaves.",
			Variants: []string{"The trainer's Pokémon sniffs out a buried item."},
			Conditions: []Condition{
				{Kind: CondSkillAtLeast, Weight: 0.6, Skill: expedition.SkillExploration, Min: 2},
				{Kind: CondModeIn, Weight: 0.4, Modes: []expedition.Mode{expedition.ModeExploration}},
			},
			CooldownMinutes: 10,
			Choices: []expedition.Choice{
				{ID: "dig", Text: "Dig it up", SuccessRate: 0.65, Skill: expedition.SkillExploration, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectItem, Amount: 1, Target: "rare_candy"}},
				{ID: "itemfinder", Text: "Use the Itemfinder", SuccessRate: 0.85, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectItem, Amount: 2, Target: "rare_candy"},
					Requirements: []expedition.Requirement{itemReq("itemfinder")}},
			},
		},
		{
			ID:      "cave_zubat_swarm",
			Type:    expedition.EventDanger,
			Rarity:  RarityCommon,
			Message: "A swarm of Zubat pours out of the darkness!",
			Conditions: []Condition{
				{Kind: CondRiskAtLeast, Weight: 0.5, Risk: expedition.RiskMedium},
			},
			Locations:       []string{"mt_moon", "cerulean_cave"},
			CooldownMinutes: 8,
			Choices: []expedition.Choice{
				{ID: "repel", Text: "Spray a Repel", SuccessRate: 0.9, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.02},
					Requirements: []expedition.Requirement{itemReq("repel")}},
				{ID: "fight_swarm", Text: "Fight them off", SuccessRate: 0.55, Skill: expedition.SkillBattle, RiskTier: expedition.RiskTierMedium,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 30}},
				{ID: "catch_zubat", Text: "Try to catch one", SuccessRate: 0.45, Skill: expedition.SkillCapture, RiskTier: expedition.RiskTierMedium,
					Effect: expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "zubat"}},
			},
		},
		{
			ID:      "fossil_site",
			Type:    expedition.EventDiscovery,
			Rarity:  RarityRare,
			Message: "The trainer uncovers what looks like an ancient fossil.",
			Conditions: []Condition{
				{Kind: CondSkillAtLeast, Weight: 0.6, Skill: expedition.SkillResearch, Min: 3},
				{Kind: CondStageIn, Weight: 0.4, Stages: []expedition.Stage{expedition.StageMiddle, expedition.StageLate}},
			},
			Locations:       []string{"mt_moon"},
			CooldownMinutes: 60,
			Choices: []expedition.Choice{
				{ID: "excavate", Text: "Excavate slowly", SuccessRate: 0.6, Skill: expedition.SkillResearch, RiskTier: expedition.RiskTierMedium,
					Effect: expedition.Effect{Kind: expedition.EffectItem, Amount: 1, Target: "helix_fossil"}},
				{ID: "mark_location", Text: "Mark the site for later", SuccessRate: 0.95, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectMoney, Amount: 100}},
			},
		},
		{
			ID:      "rare_sighting",
			Type:    expedition.EventEncounter,
			Rarity:  RarityRare,
			Message: "A shimmering Dratini surfaces in the water nearby.",
			Conditions: []Condition{
				{Kind: CondSkillAtLeast, Weight: 0.5, Skill: expedition.SkillCapture, Min: 4},
				{Kind: CondProgressBetween, Weight: 0.5, Min: 0.3, Max: 0.95},
			},
			Locations:       []string{"safari_zone", "seafoam_islands"},
			CooldownMinutes: 120,
			Choices: []expedition.Choice{
				{ID: "ultra_ball", Text: "Throw an Ultra Ball", SuccessRate: 0.4, Skill: expedition.SkillCapture, RiskTier: expedition.RiskTierMedium,
					Effect:       expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "dratini"},
					Requirements: []expedition.Requirement{itemReq("ultra_ball")}},
				{ID: "bait", Text: "Lure it closer with bait", SuccessRate: 0.3, Skill: expedition.SkillCapture, RiskTier: expedition.RiskTierHigh,
					Effect: expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "dratini"}},
			},
		},
		{
			ID:      "legendary_aura",
			Type:    expedition.EventEncounter,
			Rarity:  RarityLegendary,
			Message: "An overwhelming presence fills the air. A legendary Pokémon is near!",
			Conditions: []Condition{
				{Kind: CondMinTrainerLevel, Weight: 0.4, Min: 30},
				{Kind: CondRiskAtLeast, Weight: 0.3, Risk: expedition.RiskHigh},
				{Kind: CondStageIn, Weight: 0.3, Stages: []expedition.Stage{expedition.StageLate}},
			},
			Locations:       []string{"cerulean_cave", "seafoam_islands", "victory_road"},
			CooldownMinutes: 24 * 60,
			Choices: []expedition.Choice{
				{ID: "master_ball", Text: "Throw the Master Ball", SuccessRate: 0.95, RiskTier: expedition.RiskTierLow,
					Effect:       expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "articuno"},
					Requirements: []expedition.Requirement{itemReq("master_ball")}},
				{ID: "approach", Text: "Approach with respect", SuccessRate: 0.15, Skill: expedition.SkillCapture, RiskTier: expedition.RiskTierHigh,
					Effect:       expedition.Effect{Kind: expedition.EffectCapture, Amount: 1, Target: "articuno"},
					Requirements: []expedition.Requirement{req(expedition.RequireTrustLevel, 70), optional(skillReq(expedition.SkillCapture, 8))}},
			},
		},
		{
			ID:      "fog_bank",
			Type:    expedition.EventWeather,
			Rarity:  RarityCommon,
			Message: "Thick fog rolls in and visibility drops to a few meters.",
			Conditions: []Condition{
				{Kind: CondHourBetween, Weight: 0.6, Min: 20, Max: 6},
				{Kind: CondModeIn, Weight: 0.4, Modes: []expedition.Mode{expedition.ModeExploration, expedition.ModeAggressive}},
			},
			CooldownMinutes: 15,
			Choices: []expedition.Choice{
				{ID: "follow_compass", Text: "Navigate by compass", SuccessRate: 0.7, Skill: expedition.SkillExploration, RiskTier: expedition.RiskTierMedium,
					Effect: expedition.Effect{Kind: expedition.EffectProgress, Amount: 0.03}},
				{ID: "wait_fog", Text: "Wait for the fog to lift", SuccessRate: 0.9, RiskTier: expedition.RiskTierLow,
					Effect: expedition.Effect{Kind: expedition.EffectExperience, Amount: 5}},
			},
		},
	}
}
