package report

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// animalNames backs the session-scoped pseudonyms. Order matters: a
// student's name is derived from their position among the session's sorted
// student ids, so the mapping is stable across rebuilds without storing it.
var animalNames = []string{
	"Lion", "Tiger", "Bear", "Wolf", "Eagle", "Dolphin", "Fox", "Owl",
	"Hawk", "Panther", "Jaguar", "Falcon", "Lynx", "Puma", "Raven",
	"Cobra", "Orca", "Cheetah", "Moose", "Bison", "Rhino", "Giraffe",
	"Penguin", "Puffin", "Meerkat", "Capybara", "Octopus", "Narwhal",
	"Platypus", "Axolotl",
}

// assignPseudonyms maps each distinct student id to a deterministic
// "Anonymous <Animal>" display name. More students than names wraps with
// modulo.
func assignPseudonyms(studentIDs []uuid.UUID) map[uuid.UUID]string {
	distinct := make(map[uuid.UUID]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		distinct[id] = struct{}{}
	}

	sorted := make([]string, 0, len(distinct))
	byString := make(map[string]uuid.UUID, len(distinct))
	for id := range distinct {
		s := id.String()
		sorted = append(sorted, s)
		byString[s] = id
	}
	sort.Strings(sorted)

	names := make(map[uuid.UUID]string, len(sorted))
	for i, s := range sorted {
		names[byString[s]] = fmt.Sprintf("Anonymous %s", animalNames[i%len(animalNames)])
	}
	return names
}
