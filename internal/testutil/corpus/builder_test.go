package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Transactions(t *testing.T) {
	txns := NewBuilder(t).
		WithFixture(FixtureCafe).
		With("Cafe X", 18, 10000, "Alice", "Bob").
		Transactions()

	require.Len(t, txns, 3)
	assert.Equal(t, "Cafe X", txns[0].Place)
	assert.Equal(t, 18, txns[0].Hour())
	assert.Equal(t, []string{"Alice", "Carol"}, txns[1].Participants)

	// Same row twice still hashes differently.
	assert.NotEqual(t, txns[0].Hash, txns[2].Hash)
	assert.Equal(t, txns[2].GenerateHash(), txns[2].Hash)
	assert.Equal(t, "txn-003", txns[2].ID)
}

func TestBuilder_CopiesParticipants(t *testing.T) {
	names := []string{"Dana"}
	txns := NewBuilder(t).With("Noodle Bar", 12, 8000, names...).Transactions()
	names[0] = "changed"
	assert.Equal(t, []string{"Dana"}, txns[0].Participants)
}

func TestFixtures(t *testing.T) {
	for _, f := range []Fixture{FixtureCafe, FixturePyeongchon} {
		t.Run(f.Name, func(t *testing.T) {
			assert.NotEmpty(t, f.Description)
			for _, r := range f.Rows {
				assert.NotEmpty(t, r.Participants, r.Place)
				assert.GreaterOrEqual(t, r.Hour, 0)
				assert.LessOrEqual(t, r.Hour, 23)
			}
		})
	}
}
