package reward

import (
	"fmt"
	"math"

	"wildtrek/internal/domain/encounter"
	"wildtrek/internal/domain/expedition"
)

const (
	LootSkillStep = 0.05
	LootEventStep = 0.1
	MaxIV         = 31
)

var ivFloors = map[encounter.Rarity]int{
	encounter.RarityCommon:    0,
	encounter.RarityUncommon:  5,
	encounter.RarityRare:      10,
	encounter.RarityLegendary: 20,
}

var rarityBonus = map[encounter.Rarity]float64{
	encounter.RarityCommon:    1.0,
	encounter.RarityUncommon:  1.2,
	encounter.RarityRare:      1.5,
	encounter.RarityLegendary: 2.0,
}

func RarityBonus(r encounter.Rarity) float64 {
	if b, ok := rarityBonus[r]; ok {
		return b
	}
	return 1
}

// RarePlus reports whether a capture of this rarity ends pokémon rolls for a table.
func RarePlus(r encounter.Rarity) bool {
	return r == encounter.RarityRare || r == encounter.RarityLegendary
}

type Stats struct {
	HP        int `json:"hp"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	SpAttack  int `json:"sp_attack"`
	SpDefense int `json:"sp_defense"`
	Speed     int `json:"speed"`
}

type GeneratedPokemon struct {
	ID          string           `json:"id"`
	SpeciesID   string           `json:"species_id"`
	Name        string           `json:"name"`
	Rarity      encounter.Rarity `json:"rarity"`
	Level       int              `json:"level"`
	IVs         Stats            `json:"ivs"`
	Stats       Stats            `json:"stats"`
	Value       int              `json:"value"`
	Provenance  string           `json:"provenance"`
	RarityBonus float64          `json:"rarity_bonus"`
}

type GeneratedItem struct {
	ItemID      string           `json:"item_id"`
	Rarity      encounter.Rarity `json:"rarity"`
	Quantity    int              `json:"quantity"`
	Value       int              `json:"value"`
	Provenance  string           `json:"provenance"`
	RarityBonus float64          `json:"rarity_bonus"`
}

type Loot struct {
	ExpeditionID string             `json:"expedition_id"`
	Pokemon      []GeneratedPokemon `json:"pokemon"`
	Items        []GeneratedItem    `json:"items"`
}

func (l Loot) TotalValue() int {
	total := 0
	for _, p := range l.Pokemon {
		total += p.Value
	}
	for _, it := range l.Items {
		total += it.Value
	}
	return total
}

type LootInput struct {
	ExpeditionID string
	LocationID   string
	Table        DropTable
	Species      map[string]Species
	Trainer      expedition.Trainer
	Player       *expedition.PlayerState
	Events       []expedition.Event
	SuccessRate  float64
	LootBonus    float64
}

// SpeciesIndex maps the species a table references; used to build LootInput.
func (c Catalog) SpeciesIndex(t DropTable) map[string]Species {
	out := make(map[string]Species, len(t.Pokemon))
	for _, p := range t.Pokemon {
		if s, ok := c.species[p.SpeciesID]; ok {
			out[p.SpeciesID] = s
		}
	}
	return out
}

func Provenance(expeditionID, locationID string) string {
	return fmt.Sprintf("expedition:%s@%s", expeditionID, locationID)
}

// DropRate scales an entry's base rate by success, skill, qualifying events
// and live loot bonus, capped at 1.
func DropRate(base, successRate float64, skillLevel, qualifying int, lootBonus float64) float64 {
	rate := base *
		expedition.Clamp01(successRate) *
		(1 + LootSkillStep*float64(skillLevel)) *
		(1 + LootEventStep*float64(qualifying)) *
		(1 + math.Max(0, lootBonus))
	return math.Min(1, math.Max(0, rate))
}

func qualifyingCount(events []expedition.Event, types []expedition.EventType) int {
	if len(types) == 0 {
		return 0
	}
	n := 0
	for _, e := range events {
		if e.Resolution == nil || !e.Resolution.Success {
			continue
		}
		for _, t := range types {
			if e.Type == t {
				n++
				break
			}
		}
	}
	return n
}

// GenerateLoot rolls every table entry independently in table order. The
// sequence of draws is fixed by the table, so a seeded rng reproduces the
// same loot exactly.
func GenerateLoot(in LootInput, rng encounter.Random) Loot {
	loot := Loot{ExpeditionID: in.ExpeditionID}
	provenance := Provenance(in.ExpeditionID, in.LocationID)
	subject := expedition.Subject{Trainer: in.Trainer, Player: in.Player}

	for _, entry := range in.Table.Pokemon {
		species, ok := in.Species[entry.SpeciesID]
		if !ok {
			continue
		}
		if failures, _ := expedition.CheckRequirements(entry.Requirements, subject); len(failures) > 0 {
			continue
		}
		rate := DropRate(entry.BaseRate, in.SuccessRate, in.Trainer.SkillLevel(entry.Skill),
			qualifyingCount(in.Events, entry.QualifyingEvents), in.LootBonus)
		if rng.Float64() >= rate {
			continue
		}
		level := entry.MinLevel + rng.IntN(entry.MaxLevel-entry.MinLevel+1)
		p := RollPokemon(species, level, rng)
		p.ID = fmt.Sprintf("%s/pkm/%d", in.ExpeditionID, len(loot.Pokemon)+1)
		p.Provenance = provenance
		loot.Pokemon = append(loot.Pokemon, p)
		if RarePlus(species.Rarity) {
			break
		}
	}

	for _, entry := range in.Table.Items {
		if failures, _ := expedition.CheckRequirements(entry.Requirements, subject); len(failures) > 0 {
			continue
		}
		rate := DropRate(entry.BaseRate, in.SuccessRate, in.Trainer.SkillLevel(entry.Skill),
			qualifyingCount(in.Events, entry.QualifyingEvents), in.LootBonus)
		if rng.Float64() >= rate {
			continue
		}
		qty := entry.MinQuantity + rng.IntN(entry.MaxQuantity-entry.MinQuantity+1)
		bonus := RarityBonus(entry.Rarity)
		loot.Items = append(loot.Items, GeneratedItem{
			ItemID:      entry.ItemID,
			Rarity:      entry.Rarity,
			Quantity:    qty,
			Value:       int(math.Round(float64(entry.Value*qty) * bonus)),
			Provenance:  provenance,
			RarityBonus: bonus,
		})
	}
	return loot
}

// RollPokemon draws six IVs in fixed stat order and derives level-scaled stats.
func RollPokemon(s Species, level int, rng encounter.Random) GeneratedPokemon {
	floor := ivFloors[s.Rarity]
	roll := func() int { return floor + rng.IntN(MaxIV+1-floor) }
	ivs := Stats{HP: roll(), Attack: roll(), Defense: roll(), SpAttack: roll(), SpDefense: roll(), Speed: roll()}
	bonus := RarityBonus(s.Rarity)
	return GeneratedPokemon{
		SpeciesID:   s.ID,
		Name:        s.Name,
		Rarity:      s.Rarity,
		Level:       level,
		IVs:         ivs,
		Stats:       ComputeStats(s.Base, ivs, level),
		Value:       int(math.Round(float64(s.Value) * bonus)),
		RarityBonus: bonus,
	}
}

func ComputeStats(base BaseStats, ivs Stats, level int) Stats {
	other := func(b, iv int) int { return (2*b+iv)*level/100 + 5 }
	return Stats{
		HP:        (2*base.HP+ivs.HP)*level/100 + level + 10,
		Attack:    other(base.Attack, ivs.Attack),
		Defense:   other(base.Defense, ivs.Defense),
		SpAttack:  other(base.SpAttack, ivs.SpAttack),
		SpDefense: other(base.SpDefense, ivs.SpDefense),
		Speed:     other(base.Speed, ivs.Speed),
	}
}
