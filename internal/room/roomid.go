package room

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// roomIDWords is the generator vocabulary. Room IDs are shareable and
// memorable rather than secret; three words out of 64 is plenty of space
// for a single-process registry.
var roomIDWords = []string{
	"amber", "anchor", "aspen", "badger", "bamboo", "beacon", "birch", "bishop",
	"breeze", "canyon", "cedar", "clover", "cobalt", "comet", "coral", "crane",
	"cricket", "delta", "drift", "ember", "falcon", "fern", "flint", "garnet",
	"glacier", "harbor", "hazel", "heron", "ivory", "jasper", "juniper", "kestrel",
	"lagoon", "lantern", "linden", "lotus", "maple", "marble", "meadow", "mesa",
	"nectar", "nimbus", "onyx", "orchid", "osprey", "pebble", "pinecone", "plover",
	"quartz", "raven", "reef", "ridge", "saffron", "sparrow", "summit", "thistle",
	"timber", "topaz", "tundra", "velvet", "walnut", "willow", "wren", "zephyr",
}

const roomIDWordCount = 3

// generateRoomID builds a memorable word-triple ID like
// "Amber-Falcon-Harbor", falling back to a UUID if the random source fails.
func generateRoomID() string {
	words := make([]string, 0, roomIDWordCount)
	max := big.NewInt(int64(len(roomIDWords)))
	for i := 0; i < roomIDWordCount; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return fallbackRoomID()
		}
		words = append(words, capitalize(roomIDWords[n.Int64()]))
	}
	return strings.Join(words, "-")
}

// fallbackRoomID returns a UUID-based room ID.
func fallbackRoomID() string {
	return uuid.NewString()
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
