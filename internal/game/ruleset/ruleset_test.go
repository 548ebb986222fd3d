package ruleset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{}

func (stubProvider) Init(players []string) (State, error) {
	return json.Marshal(players)
}

func (stubProvider) Apply(state State, playerID string, action json.RawMessage) (Result, error) {
	return Result{State: state}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("stub", stubProvider{}))

	p, ok := r.Lookup("stub")
	assert.True(t, ok)
	assert.NotNil(t, p)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("stub", stubProvider{}))
	err := r.Register("stub", stubProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("whist", stubProvider{}))
	require.NoError(t, r.Register("shithead", stubProvider{}))
	assert.Equal(t, []string{"shithead", "whist"}, r.Names())
}

func TestRejectionIsError(t *testing.T) {
	err := Reject("card %s is not in hand", "ace of spades")

	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "card ace of spades is not in hand", rej.Reason)
	assert.Contains(t, err.Error(), "action rejected")
}

func TestDeckCards(t *testing.T) {
	d := &Deck{
		ID:    "mini",
		Suits: []string{"spades", "hearts"},
		Ranks: []string{"ace", "2", "3"},
	}
	cards := d.Cards()
	require.Len(t, cards, 6)
	assert.Equal(t, Card{Suit: "spades", Rank: "ace"}, cards[0])
	assert.Equal(t, Card{Suit: "hearts", Rank: "3"}, cards[5])
}

func TestLoadDecks(t *testing.T) {
	dir := t.TempDir()
	content := `
id: standard
name: Standard 52-card deck
suits: [spades, hearts, diamonds, clubs]
ranks: ["2", "3", "4", "5", "6", "7", "8", "9", "10", jack, queen, king, ace]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "standard.yaml"), []byte(content), 0o600))

	decks, err := LoadDecks(dir)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "standard", decks[0].ID)
	assert.Len(t, decks[0].Cards(), 52)

	d, ok := FindDeck(decks, "standard")
	assert.True(t, ok)
	assert.Equal(t, "Standard 52-card deck", d.Name)

	_, ok = FindDeck(decks, "tarot")
	assert.False(t, ok)
}

func TestLoadDecksInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nsuits: []\nranks: [ace]\n"), 0o600))

	_, err := LoadDecks(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suits must not be empty")
}

func TestLoadDecksMissingDir(t *testing.T) {
	_, err := LoadDecks("/nonexistent/decks")
	assert.Error(t, err)
}
