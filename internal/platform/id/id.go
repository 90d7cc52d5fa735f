// Package id generates identifiers for expeditions, events and interventions.
package id

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

const (
	PrefixExpedition   = "exp"
	PrefixEvent        = "evt"
	PrefixIntervention = "itv"
	PrefixEffect       = "eff"
	PrefixPokemon      = "pkm"
)

// New returns a prefixed random (version 4) UUID such as "evt-0b5f...".
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// Generator produces ids; tests swap in Sequence for stable values.
type Generator func(prefix string) string

// Sequence returns a Generator that yields prefix-1, prefix-2, ... per prefix.
func Sequence() Generator {
	var mu sync.Mutex
	counters := map[string]int{}
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		counters[prefix]++
		return prefix + "-" + strconv.Itoa(counters[prefix])
	}
}
