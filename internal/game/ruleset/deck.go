package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Card is a single playing card. Suit and Rank are free-form strings defined
// by the deck content file, so non-standard decks need no code changes.
type Card struct {
	Suit string `yaml:"suit" json:"suit"`
	Rank string `yaml:"rank" json:"rank"`
}

// Deck defines a deck's composition as loaded from a content file.
//
// Precondition: ID, Suits, and Ranks must be non-empty after loading.
type Deck struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Suits []string `yaml:"suits"`
	Ranks []string `yaml:"ranks"`
}

// Cards returns the full unshuffled deck: one card per (suit, rank) pair,
// suits in file order, ranks in file order within each suit.
func (d *Deck) Cards() []Card {
	cards := make([]Card, 0, len(d.Suits)*len(d.Ranks))
	for _, suit := range d.Suits {
		for _, rank := range d.Ranks {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return cards
}

// Validate checks the deck definition invariants.
func (d *Deck) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("deck id must not be empty")
	}
	if len(d.Suits) == 0 {
		return fmt.Errorf("deck %s: suits must not be empty", d.ID)
	}
	if len(d.Ranks) == 0 {
		return fmt.Errorf("deck %s: ranks must not be empty", d.ID)
	}
	return nil
}

// LoadDecks reads all .yaml files in dir and parses each as a Deck.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed decks (may be empty slice) or a non-nil error.
func LoadDecks(dir string) ([]*Deck, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	decks := make([]*Deck, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var d Deck
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parsing deck file %s: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("deck file %s: %w", path, err)
		}
		decks = append(decks, &d)
	}
	return decks, nil
}

// FindDeck returns the deck with the given ID from the slice.
//
// Postcondition: Returns (deck, true) if present, or (nil, false) otherwise.
func FindDeck(decks []*Deck, id string) (*Deck, bool) {
	for _, d := range decks {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
