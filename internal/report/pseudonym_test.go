package report

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPseudonymsAreStable(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	first := assignPseudonyms(ids)
	second := assignPseudonyms(ids)
	require.Equal(t, first, second, "same ids must map to the same names")
}

func TestPseudonymsNoCollisionUpToListLength(t *testing.T) {
	ids := make([]uuid.UUID, len(animalNames))
	for i := range ids {
		ids[i] = uuid.New()
	}

	names := assignPseudonyms(ids)
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		_, dup := seen[name]
		require.False(t, dup, "duplicate pseudonym %q below list length", name)
		seen[name] = struct{}{}
	}
}

func TestPseudonymsWrapWithModulo(t *testing.T) {
	ids := make([]uuid.UUID, len(animalNames)+5)
	for i := range ids {
		ids[i] = uuid.New()
	}

	names := assignPseudonyms(ids)
	require.Len(t, names, len(ids), "every student gets a name even past the list length")
	for _, name := range names {
		require.Regexp(t, `^Anonymous [A-Z][a-z]+$`, name)
	}
}

func TestPseudonymsDeduplicateInput(t *testing.T) {
	id := uuid.New()
	names := assignPseudonyms([]uuid.UUID{id, id, id})
	require.Len(t, names, 1)
}
