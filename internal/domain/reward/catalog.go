package reward

import (
	"fmt"
	"sort"

	"wildtrek/internal/domain/encounter"
	"wildtrek/internal/domain/expedition"
)

type BaseStats struct {
	HP        int `json:"hp"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	SpAttack  int `json:"sp_attack"`
	SpDefense int `json:"sp_defense"`
	Speed     int `json:"speed"`
}

type Species struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Rarity encounter.Rarity `json:"rarity"`
	Base   BaseStats        `json:"base"`
	Value  int              `json:"value"`
}

type PokemonDrop struct {
	SpeciesID        string                   `json:"species_id"`
	BaseRate         float64                  `json:"base_rate"`
	MinLevel         int                      `json:"min_level"`
	MaxLevel         int                      `json:"max_level"`
	Requirements     []expedition.Requirement `json:"requirements,omitempty"`
	QualifyingEvents []expedition.EventType   `json:"qualifying_events,omitempty"`
	Skill            expedition.Skill         `json:"skill,omitempty"`
}

type ItemDrop struct {
	ItemID           string                   `json:"item_id"`
	Rarity           encounter.Rarity         `json:"rarity"`
	Value            int                      `json:"value"`
	BaseRate         float64                  `json:"base_rate"`
	MinQuantity      int                      `json:"min_quantity"`
	MaxQuantity      int                      `json:"max_quantity"`
	Requirements     []expedition.Requirement `json:"requirements,omitempty"`
	QualifyingEvents []expedition.EventType   `json:"qualifying_events,omitempty"`
	Skill            expedition.Skill         `json:"skill,omitempty"`
}

type DropTable struct {
	ID      string        `json:"id"`
	Pokemon []PokemonDrop `json:"pokemon"`
	Items   []ItemDrop    `json:"items"`
}

// CaptureRich reports whether the table offers enough pokémon for a trainer
// to be expected to catch something.
func (t DropTable) CaptureRich() bool {
	return len(t.Pokemon) >= 3
}

type Catalog struct {
	locations map[string]expedition.Location
	species   map[string]Species
	tables    map[string]DropTable
}

func NewCatalog(locations []expedition.Location, species []Species, tables []DropTable) (Catalog, error) {
	c := Catalog{
		locations: make(map[string]expedition.Location, len(locations)),
		species:   make(map[string]Species, len(species)),
		tables:    make(map[string]DropTable, len(tables)),
	}
	for _, s := range species {
		if s.ID == "" || s.Rarity.Weight() <= 0 {
			return Catalog{}, fmt.Errorf("species %q: id and known rarity are required", s.ID)
		}
		if _, dup := c.species[s.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate species id %s", s.ID)
		}
		c.species[s.ID] = s
	}
	for _, t := range tables {
		if _, dup := c.tables[t.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate drop table id %s", t.ID)
		}
		for _, p := range t.Pokemon {
			if _, ok := c.species[p.SpeciesID]; !ok {
				return Catalog{}, fmt.Errorf("drop table %s: unknown species %s", t.ID, p.SpeciesID)
			}
			if p.MinLevel <= 0 || p.MaxLevel < p.MinLevel {
				return Catalog{}, fmt.Errorf("drop table %s: invalid level range for %s", t.ID, p.SpeciesID)
			}
		}
		for _, it := range t.Items {
			if it.MinQuantity <= 0 || it.MaxQuantity < it.MinQuantity {
				return Catalog{}, fmt.Errorf("drop table %s: invalid quantity range for %s", t.ID, it.ItemID)
			}
		}
		c.tables[t.ID] = t
	}
	for _, l := range locations {
		if _, dup := c.locations[l.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate location id %s", l.ID)
		}
		if _, ok := c.tables[l.DropTableID]; !ok {
			return Catalog{}, fmt.Errorf("location %s: unknown drop table %s", l.ID, l.DropTableID)
		}
		if l.Difficulty < 0 || l.Difficulty > 1 {
			return Catalog{}, fmt.Errorf("location %s: difficulty out of range", l.ID)
		}
		c.locations[l.ID] = l
	}
	return c, nil
}

func DefaultCatalog() Catalog {
	c, err := NewCatalog(DefaultLocations(), DefaultSpecies(), DefaultDropTables())
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Location(id string) (expedition.Location, error) {
	l, ok := c.locations[id]
	if !ok {
		return expedition.Location{}, expedition.NewUnknownIDError("location", id, keys(c.locations))
	}
	return l, nil
}

func (c Catalog) Locations() []expedition.Location {
	out := make([]expedition.Location, 0, len(c.locations))
	for _, id := range keys(c.locations) {
		out = append(out, c.locations[id])
	}
	return out
}

func (c Catalog) Species(id string) (Species, error) {
	s, ok := c.species[id]
	if !ok {
		return Species{}, expedition.NewUnknownIDError("species", id, keys(c.species))
	}
	return s, nil
}

func (c Catalog) DropTable(id string) (DropTable, error) {
	t, ok := c.tables[id]
	if !ok {
		return DropTable{}, expedition.NewUnknownIDError("drop table", id, keys(c.tables))
	}
	return t, nil
}

// DropTableFor resolves the table bound to a location.
func (c Catalog) DropTableFor(locationID string) (DropTable, error) {
	l, err := c.Location(locationID)
	if err != nil {
		return DropTable{}, err
	}
	return c.DropTable(l.DropTableID)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func DefaultLocations() []expedition.Location {
	return []expedition.Location{
		{ID: "viridian_forest", Name: "Viridian Forest", Difficulty: 0.2, RiskMultiplier: 0.8, DropTableID: "forest"},
		{ID: "mt_moon", Name: "Mt. Moon", Difficulty: 0.45, RiskMultiplier: 1.0, DropTableID: "cave"},
		{ID: "safari_zone", Name: "Safari Zone", Difficulty: 0.4, RiskMultiplier: 0.9, DropTableID: "safari",
			Modes: []expedition.Mode{expedition.ModeSafe, expedition.ModeBalanced, expedition.ModeExploration}},
		{ID: "seafoam_islands", Name: "Seafoam Islands", Difficulty: 0.65, RiskMultiplier: 1.15, DropTableID: "islands"},
		{ID: "cerulean_cave", Name: "Cerulean Cave", Difficulty: 0.9, RiskMultiplier: 1.4, DropTableID: "deep_cave",
			Modes: []expedition.Mode{expedition.ModeBalanced, expedition.ModeExploration, expedition.ModeAggressive}},
		{ID: "victory_road", Name: "Victory Road", Difficulty: 0.75, RiskMultiplier: 1.25, DropTableID: "road"},
	}
}

func DefaultSpecies() []Species {
	return []Species{
		{ID: "pidgey", Name: "Pidgey", Rarity: encounter.RarityCommon, Base: BaseStats{40, 45, 40, 35, 35, 56}, Value: 50},
		{ID: "rattata", Name: "Rattata", Rarity: encounter.RarityCommon, Base: BaseStats{30, 56, 35, 25, 35, 72}, Value: 40},
		{ID: "caterpie", Name: "Caterpie", Rarity: encounter.RarityCommon, Base: BaseStats{45, 30, 35, 20, 20, 45}, Value: 30},
		{ID: "weedle", Name: "Weedle", Rarity: encounter.RarityCommon, Base: BaseStats{40, 35, 30, 20, 20, 50}, Value: 30},
		{ID: "pikachu", Name: "Pikachu", Rarity: encounter.RarityUncommon, Base: BaseStats{35, 55, 40, 50, 50, 90}, Value: 180},
		{ID: "zubat", Name: "Zubat", Rarity: encounter.RarityCommon, Base: BaseStats{40, 45, 35, 30, 40, 55}, Value: 40},
		{ID: "geodude", Name: "Geodude", Rarity: encounter.RarityCommon, Base: BaseStats{40, 80, 100, 30, 30, 20}, Value: 60},
		{ID: "clefairy", Name: "Clefairy", Rarity: encounter.RarityUncommon, Base: BaseStats{70, 45, 48, 60, 65, 35}, Value: 220},
		{ID: "seel", Name: "Seel", Rarity: encounter.RarityCommon, Base: BaseStats{65, 45, 55, 45, 70, 45}, Value: 70},
		{ID: "machop", Name: "Machop", Rarity: encounter.RarityCommon, Base: BaseStats{70, 80, 50, 35, 35, 35}, Value: 70},
		{ID: "graveler", Name: "Graveler", Rarity: encounter.RarityUncommon, Base: BaseStats{55, 95, 115, 45, 45, 35}, Value: 200},
		{ID: "onix", Name: "Onix", Rarity: encounter.RarityUncommon, Base: BaseStats{35, 45, 160, 30, 45, 70}, Value: 240},
		{ID: "kangaskhan", Name: "Kangaskhan", Rarity: encounter.RarityRare, Base: BaseStats{105, 95, 80, 40, 80, 90}, Value: 700},
		{ID: "scyther", Name: "Scyther", Rarity: encounter.RarityRare, Base: BaseStats{70, 110, 80, 55, 80, 105}, Value: 750},
		{ID: "chansey", Name: "Chansey", Rarity: encounter.RarityRare, Base: BaseStats{250, 5, 5, 35, 105, 50}, Value: 800},
		{ID: "dratini", Name: "Dratini", Rarity: encounter.RarityRare, Base: BaseStats{41, 64, 45, 50, 50, 50}, Value: 900},
		{ID: "lapras", Name: "Lapras", Rarity: encounter.RarityRare, Base: BaseStats{130, 85, 80, 85, 95, 60}, Value: 1000},
		{ID: "articuno", Name: "Articuno", Rarity: encounter.RarityLegendary, Base: BaseStats{90, 85, 100, 95, 125, 85}, Value: 3000},
		{ID: "mewtwo", Name: "Mewtwo", Rarity: encounter.RarityLegendary, Base: BaseStats{106, 110, 90, 154, 90, 130}, Value: 5000},
	}
}

var (
	encounterEvents = []expedition.EventType{expedition.EventEncounter}
	searchEvents    = []expedition.EventType{expedition.EventDiscovery}
	hardshipEvents  = []expedition.EventType{expedition.EventDanger, expedition.EventWeather}
)

func DefaultDropTables() []DropTable {
	return []DropTable{
		{
			ID: "forest",
			Pokemon: []PokemonDrop{
				{SpeciesID: "caterpie", BaseRate: 0.6, MinLevel: 3, MaxLevel: 7, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "weedle", BaseRate: 0.6, MinLevel: 3, MaxLevel: 7, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "pidgey", BaseRate: 0.4, MinLevel: 4, MaxLevel: 9, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "pikachu", BaseRate: 0.08, MinLevel: 5, MaxLevel: 9, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
			},
			Items: []ItemDrop{
				{ItemID: "oran_berry", Rarity: encounter.RarityCommon, Value: 10, BaseRate: 0.8, MinQuantity: 1, MaxQuantity: 5, Skill: expedition.SkillForaging, QualifyingEvents: searchEvents},
				{ItemID: "potion", Rarity: encounter.RarityCommon, Value: 30, BaseRate: 0.5, MinQuantity: 1, MaxQuantity: 2, Skill: expedition.SkillExploration, QualifyingEvents: searchEvents},
				{ItemID: "antidote", Rarity: encounter.RarityCommon, Value: 20, BaseRate: 0.4, MinQuantity: 1, MaxQuantity: 2, Skill: expedition.SkillForaging},
			},
		},
		{
			ID: "cave",
			Pokemon: []PokemonDrop{
				{SpeciesID: "zubat", BaseRate: 0.7, MinLevel: 6, MaxLevel: 12, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "geodude", BaseRate: 0.5, MinLevel: 7, MaxLevel: 12, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "clefairy", BaseRate: 0.1, MinLevel: 8, MaxLevel: 12, Skill: expedition.SkillResearch, QualifyingEvents: searchEvents},
				{SpeciesID: "onix", BaseRate: 0.05, MinLevel: 10, MaxLevel: 14, Skill: expedition.SkillBattle,
					Requirements: []expedition.Requirement{{Type: expedition.RequireSkill, Skill: expedition.SkillBattle, Value: 3}}},
			},
			Items: []ItemDrop{
				{ItemID: "moon_stone", Rarity: encounter.RarityRare, Value: 800, BaseRate: 0.05, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillResearch, QualifyingEvents: searchEvents},
				{ItemID: "escape_rope", Rarity: encounter.RarityCommon, Value: 40, BaseRate: 0.5, MinQuantity: 1, MaxQuantity: 2, Skill: expedition.SkillSurvival, QualifyingEvents: hardshipEvents},
				{ItemID: "helix_fossil", Rarity: encounter.RarityRare, Value: 500, BaseRate: 0.04, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillResearch},
			},
		},
		{
			ID: "safari",
			Pokemon: []PokemonDrop{
				{SpeciesID: "rattata", BaseRate: 0.5, MinLevel: 15, MaxLevel: 22, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "kangaskhan", BaseRate: 0.06, MinLevel: 20, MaxLevel: 28, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "scyther", BaseRate: 0.05, MinLevel: 20, MaxLevel: 28, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "chansey", BaseRate: 0.04, MinLevel: 20, MaxLevel: 26, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "dratini", BaseRate: 0.03, MinLevel: 15, MaxLevel: 20, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents,
					Requirements: []expedition.Requirement{{Type: expedition.RequireTrustLevel, Value: 30}}},
			},
			Items: []ItemDrop{
				{ItemID: "great_ball", Rarity: encounter.RarityUncommon, Value: 60, BaseRate: 0.5, MinQuantity: 1, MaxQuantity: 3, Skill: expedition.SkillExploration},
				{ItemID: "nugget", Rarity: encounter.RarityRare, Value: 1000, BaseRate: 0.03, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillExploration, QualifyingEvents: searchEvents},
			},
		},
		{
			ID: "islands",
			Pokemon: []PokemonDrop{
				{SpeciesID: "seel", BaseRate: 0.6, MinLevel: 25, MaxLevel: 32, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "zubat", BaseRate: 0.5, MinLevel: 22, MaxLevel: 28, Skill: expedition.SkillCapture},
				{SpeciesID: "lapras", BaseRate: 0.03, MinLevel: 30, MaxLevel: 35, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "articuno", BaseRate: 0.005, MinLevel: 50, MaxLevel: 50, Skill: expedition.SkillCapture,
					Requirements: []expedition.Requirement{{Type: expedition.RequireTrustLevel, Value: 70}}},
			},
			Items: []ItemDrop{
				{ItemID: "pearl", Rarity: encounter.RarityUncommon, Value: 200, BaseRate: 0.3, MinQuantity: 1, MaxQuantity: 2, Skill: expedition.SkillForaging, QualifyingEvents: searchEvents},
				{ItemID: "ice_heal", Rarity: encounter.RarityCommon, Value: 25, BaseRate: 0.5, MinQuantity: 1, MaxQuantity: 3, Skill: expedition.SkillSurvival, QualifyingEvents: hardshipEvents},
			},
		},
		{
			ID: "deep_cave",
			Pokemon: []PokemonDrop{
				{SpeciesID: "graveler", BaseRate: 0.5, MinLevel: 45, MaxLevel: 55, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "chansey", BaseRate: 0.08, MinLevel: 45, MaxLevel: 55, Skill: expedition.SkillCapture},
				{SpeciesID: "mewtwo", BaseRate: 0.002, MinLevel: 70, MaxLevel: 70, Skill: expedition.SkillBattle,
					Requirements: []expedition.Requirement{
						{Type: expedition.RequireTrustLevel, Value: 90},
						{Type: expedition.RequireSkill, Skill: expedition.SkillBattle, Value: 8},
					}},
			},
			Items: []ItemDrop{
				{ItemID: "ultra_ball", Rarity: encounter.RarityUncommon, Value: 120, BaseRate: 0.5, MinQuantity: 1, MaxQuantity: 3, Skill: expedition.SkillExploration},
				{ItemID: "rare_candy", Rarity: encounter.RarityRare, Value: 400, BaseRate: 0.15, MinQuantity: 1, MaxQuantity: 2, Skill: expedition.SkillResearch, QualifyingEvents: hardshipEvents},
				{ItemID: "max_revive", Rarity: encounter.RarityRare, Value: 600, BaseRate: 0.08, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillSurvival},
			},
		},
		{
			ID: "road",
			Pokemon: []PokemonDrop{
				{SpeciesID: "machop", BaseRate: 0.6, MinLevel: 35, MaxLevel: 42, Skill: expedition.SkillBattle, QualifyingEvents: []expedition.EventType{expedition.EventSocial}},
				{SpeciesID: "onix", BaseRate: 0.3, MinLevel: 38, MaxLevel: 44, Skill: expedition.SkillCapture, QualifyingEvents: encounterEvents},
				{SpeciesID: "graveler", BaseRate: 0.3, MinLevel: 38, MaxLevel: 44, Skill: expedition.SkillCapture},
			},
			Items: []ItemDrop{
				{ItemID: "full_restore", Rarity: encounter.RarityUncommon, Value: 300, BaseRate: 0.2, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillSurvival, QualifyingEvents: hardshipEvents},
				{ItemID: "tm_earthquake", Rarity: encounter.RarityRare, Value: 900, BaseRate: 0.04, MinQuantity: 1, MaxQuantity: 1, Skill: expedition.SkillBattle,
					Requirements: []expedition.Requirement{{Type: expedition.RequirePlayerLevel, Value: 20}}},
			},
		},
	}
}
