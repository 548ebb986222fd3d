// Package shithead implements the built-in shedding card game as a
// ruleset.Provider. Each player is dealt a hand plus face-up and face-down
// piles; the first player to shed every card wins.
package shithead

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cory-johannsen/parlor/internal/game/ruleset"
)

// GameType is the name this provider registers under.
const GameType = "shithead"

// Action types accepted by Apply.
const (
	// ActionPlay plays a named card from the hand or face-up pile.
	ActionPlay = "play"
	// ActionPlayFaceDown reveals and plays a face-down card blind, by index.
	ActionPlayFaceDown = "play_face_down"
	// ActionPickup voluntarily picks up the discard pile.
	ActionPickup = "pickup"
)

// Pile sources for ActionPlay.
const (
	SourceHand   = "hand"
	SourceFaceUp = "face_up"
)

const (
	handSize     = 3
	faceUpSize   = 3
	faceDownSize = 3
	cardsDealt   = handSize + faceUpSize + faceDownSize
)

// Action is a player's move, carried as the opaque action payload.
type Action struct {
	Type      string        `json:"type"`
	Card      *ruleset.Card `json:"card,omitempty"`
	Source    string        `json:"source,omitempty"`
	CardIndex int           `json:"card_index,omitempty"`
}

type playerState struct {
	ID       string         `json:"id"`
	Hand     []ruleset.Card `json:"hand"`
	FaceUp   []ruleset.Card `json:"face_up"`
	FaceDown []ruleset.Card `json:"face_down"`
}

type gameState struct {
	Players            []playerState  `json:"players"`
	CurrentPlayerIndex int            `json:"current_player_index"`
	Deck               []ruleset.Card `json:"deck"`
	DiscardPile        []ruleset.Card `json:"discard_pile"`
	Winner             string         `json:"winner,omitempty"`
}

// rankOrder gives the comparison value of each rank. Twos rank low for
// ordering purposes but are always legal as a special rank.
var rankOrder = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9,
	"10": 10, "jack": 11, "queen": 12, "king": 13, "ace": 14,
}

// specialRanks are always legal to play regardless of the pile top.
var specialRanks = map[string]bool{"2": true, "3": true, "10": true}

// Provider implements ruleset.Provider and ruleset.Advisor for the game.
type Provider struct {
	deck *ruleset.Deck

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Provider.
type Option func(*Provider)

// WithRand overrides the shuffle source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(p *Provider) { p.rng = rng }
}

// NewProvider creates a Provider dealing from the given deck definition.
//
// Precondition: deck must be non-nil and validated.
func NewProvider(deck *ruleset.Deck, opts ...Option) *Provider {
	p := &Provider{
		deck: deck,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init shuffles the deck and deals each player a face-down pile, a face-up
// pile, and a starting hand. Remaining cards form the draw deck.
func (p *Provider) Init(players []string) (ruleset.State, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", len(players))
	}
	cards := p.deck.Cards()
	if len(players)*cardsDealt > len(cards) {
		return nil, fmt.Errorf("deck %s has %d cards, not enough for %d players", p.deck.ID, len(cards), len(players))
	}

	p.mu.Lock()
	p.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	p.mu.Unlock()

	gs := gameState{
		Players:            make([]playerState, 0, len(players)),
		CurrentPlayerIndex: 0,
		DiscardPile:        []ruleset.Card{},
	}
	for _, id := range players {
		ps := playerState{
			ID:       id,
			FaceDown: append([]ruleset.Card(nil), cards[:faceDownSize]...),
			FaceUp:   append([]ruleset.Card(nil), cards[faceDownSize:faceDownSize+faceUpSize]...),
			Hand:     append([]ruleset.Card(nil), cards[faceDownSize+faceUpSize:cardsDealt]...),
		}
		cards = cards[cardsDealt:]
		gs.Players = append(gs.Players, ps)
	}
	gs.Deck = cards

	return json.Marshal(gs)
}

// Apply validates and applies one action against the state.
//
// Rule refusals (wrong turn, card not held, illegal card with a legal
// alternative available) are returned as *ruleset.Rejection. A play with no
// legal alternative commits a forced pickup of the discard pile instead.
func (p *Provider) Apply(state ruleset.State, playerID string, action json.RawMessage) (ruleset.Result, error) {
	var gs gameState
	if err := json.Unmarshal(state, &gs); err != nil {
		return ruleset.Result{}, fmt.Errorf("decoding game state: %w", err)
	}
	var act Action
	if err := json.Unmarshal(action, &act); err != nil {
		return ruleset.Result{}, fmt.Errorf("decoding action: %w", err)
	}

	if gs.Winner != "" {
		return ruleset.Result{}, ruleset.Reject("game is over")
	}

	idx := playerIndex(gs.Players, playerID)
	if idx < 0 {
		return ruleset.Result{}, ruleset.Reject("player %s is not in this game", playerID)
	}
	if idx != gs.CurrentPlayerIndex {
		return ruleset.Result{}, ruleset.Reject("not your turn")
	}
	player := &gs.Players[idx]

	switch act.Type {
	case ActionPlay:
		if err := p.applyPlay(&gs, player, act); err != nil {
			return ruleset.Result{}, err
		}
	case ActionPlayFaceDown:
		if err := p.applyPlayFaceDown(&gs, player, act); err != nil {
			return ruleset.Result{}, err
		}
	case ActionPickup:
		if len(gs.DiscardPile) == 0 {
			return ruleset.Result{}, ruleset.Reject("discard pile is empty")
		}
		pickupPile(&gs, player)
		advanceTurn(&gs)
	default:
		return ruleset.Result{}, ruleset.Reject("unknown action type %q", act.Type)
	}

	data, err := json.Marshal(gs)
	if err != nil {
		return ruleset.Result{}, fmt.Errorf("encoding game state: %w", err)
	}
	return ruleset.Result{
		State:    data,
		GameOver: gs.Winner != "",
		Winner:   gs.Winner,
	}, nil
}

func (p *Provider) applyPlay(gs *gameState, player *playerState, act Action) error {
	if act.Card == nil {
		return ruleset.Reject("play requires a card")
	}

	source := act.Source
	if source == "" {
		source = SourceHand
	}
	var pile *[]ruleset.Card
	switch source {
	case SourceHand:
		pile = &player.Hand
	case SourceFaceUp:
		if len(player.Hand) > 0 {
			return ruleset.Reject("cannot play face-up cards while holding a hand")
		}
		pile = &player.FaceUp
	default:
		return ruleset.Reject("unknown source %q", act.Source)
	}

	ci := cardIndex(*pile, *act.Card)
	if ci < 0 {
		return ruleset.Reject("card %s of %s is not in your %s pile", act.Card.Rank, act.Card.Suit, source)
	}

	if !legalPlay(*act.Card, gs.DiscardPile) {
		if hasLegalPlay(*pile, gs.DiscardPile) {
			return ruleset.Reject("%s of %s cannot be played on the current pile", act.Card.Rank, act.Card.Suit)
		}
		// No legal card anywhere in the pile: forced pickup.
		pickupPile(gs, player)
		advanceTurn(gs)
		return nil
	}

	*pile = append((*pile)[:ci], (*pile)[ci+1:]...)
	gs.DiscardPile = append(gs.DiscardPile, *act.Card)
	drawToHandSize(gs, player)

	if checkGameOver(gs, player) {
		return nil
	}
	advanceTurn(gs)
	return nil
}

func (p *Provider) applyPlayFaceDown(gs *gameState, player *playerState, act Action) error {
	if len(player.Hand) > 0 || len(player.FaceUp) > 0 {
		return ruleset.Reject("face-down cards can only be played once hand and face-up piles are empty")
	}
	if act.CardIndex < 0 || act.CardIndex >= len(player.FaceDown) {
		return ruleset.Reject("face-down index %d out of range", act.CardIndex)
	}

	card := player.FaceDown[act.CardIndex]
	player.FaceDown = append(player.FaceDown[:act.CardIndex], player.FaceDown[act.CardIndex+1:]...)

	if !legalPlay(card, gs.DiscardPile) {
		// Revealed card was unplayable: it and the pile go to the hand.
		player.Hand = append(player.Hand, card)
		pickupPile(gs, player)
		advanceTurn(gs)
		return nil
	}

	gs.DiscardPile = append(gs.DiscardPile, card)
	if checkGameOver(gs, player) {
		return nil
	}
	advanceTurn(gs)
	return nil
}

// legalPlay reports whether card may be placed on the discard pile.
// Threes are transparent: the effective top card is the topmost non-three.
// A seven forces equal-or-lower; otherwise the card must rank equal-or-higher.
func legalPlay(card ruleset.Card, discard []ruleset.Card) bool {
	if specialRanks[card.Rank] {
		return true
	}
	top, ok := effectiveTop(discard)
	if !ok {
		return true
	}
	if top.Rank == "7" {
		return rankOrder[card.Rank] <= rankOrder["7"]
	}
	return rankOrder[card.Rank] >= rankOrder[top.Rank]
}

func effectiveTop(discard []ruleset.Card) (ruleset.Card, bool) {
	for i := len(discard) - 1; i >= 0; i-- {
		if discard[i].Rank != "3" {
			return discard[i], true
		}
	}
	return ruleset.Card{}, false
}

func hasLegalPlay(pile []ruleset.Card, discard []ruleset.Card) bool {
	for _, c := range pile {
		if legalPlay(c, discard) {
			return true
		}
	}
	return false
}

func pickupPile(gs *gameState, player *playerState) {
	player.Hand = append(player.Hand, gs.DiscardPile...)
	gs.DiscardPile = []ruleset.Card{}
}

func drawToHandSize(gs *gameState, player *playerState) {
	for len(player.Hand) < handSize && len(gs.Deck) > 0 {
		player.Hand = append(player.Hand, gs.Deck[0])
		gs.Deck = gs.Deck[1:]
	}
}

func checkGameOver(gs *gameState, player *playerState) bool {
	if len(player.Hand) == 0 && len(player.FaceUp) == 0 && len(player.FaceDown) == 0 {
		gs.Winner = player.ID
		return true
	}
	return false
}

func advanceTurn(gs *gameState) {
	if len(gs.Players) == 0 {
		return
	}
	gs.CurrentPlayerIndex = (gs.CurrentPlayerIndex + 1) % len(gs.Players)
}

func playerIndex(players []playerState, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cardIndex(pile []ruleset.Card, card ruleset.Card) int {
	for i, c := range pile {
		if c == card {
			return i
		}
	}
	return -1
}

// Suggest proposes a move for the player, implementing ruleset.Advisor:
// a random legal hand card, then a random legal face-up card, then a blind
// face-down card, then a pickup when nothing can be played.
func (p *Provider) Suggest(state ruleset.State, playerID string) (json.RawMessage, bool) {
	var gs gameState
	if err := json.Unmarshal(state, &gs); err != nil {
		return nil, false
	}
	if gs.Winner != "" {
		return nil, false
	}
	idx := playerIndex(gs.Players, playerID)
	if idx < 0 || idx != gs.CurrentPlayerIndex {
		return nil, false
	}
	player := gs.Players[idx]

	if act, ok := p.suggestFromPile(player.Hand, SourceHand, gs.DiscardPile); ok {
		return marshalAction(act)
	}
	if len(player.Hand) == 0 {
		if act, ok := p.suggestFromPile(player.FaceUp, SourceFaceUp, gs.DiscardPile); ok {
			return marshalAction(act)
		}
		if len(player.FaceUp) == 0 && len(player.FaceDown) > 0 {
			p.mu.Lock()
			i := p.rng.Intn(len(player.FaceDown))
			p.mu.Unlock()
			return marshalAction(Action{Type: ActionPlayFaceDown, CardIndex: i})
		}
	}
	if len(gs.DiscardPile) > 0 {
		return marshalAction(Action{Type: ActionPickup})
	}
	return nil, false
}

func (p *Provider) suggestFromPile(pile []ruleset.Card, source string, discard []ruleset.Card) (Action, bool) {
	var legal []ruleset.Card
	for _, c := range pile {
		if legalPlay(c, discard) {
			legal = append(legal, c)
		}
	}
	if len(legal) == 0 {
		return Action{}, false
	}
	p.mu.Lock()
	card := legal[p.rng.Intn(len(legal))]
	p.mu.Unlock()
	return Action{Type: ActionPlay, Card: &card, Source: source}, true
}

func marshalAction(act Action) (json.RawMessage, bool) {
	data, err := json.Marshal(act)
	if err != nil {
		return nil, false
	}
	return data, true
}
