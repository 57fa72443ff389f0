package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
)

var passwordWords = []string{
	"apple", "anchor", "badger", "banjo", "beacon", "bison", "breeze", "bucket",
	"cactus", "candle", "canyon", "cedar", "cherry", "cobalt", "comet", "copper",
	"dagger", "dolphin", "dragon", "ember", "falcon", "fern", "fiddle", "forest",
	"galaxy", "garnet", "ginger", "glacier", "granite", "harbor", "hazel", "heron",
	"island", "ivory", "jacket", "jasmine", "jungle", "kettle", "kiwi", "lantern",
	"lemon", "lizard", "maple", "marble", "meadow", "meteor", "mango", "nectar",
	"noodle", "nutmeg", "oasis", "olive", "orbit", "otter", "paddle", "pepper",
	"pebble", "pickle", "pirate", "planet", "quartz", "quill", "rabbit", "raven",
	"ribbon", "rocket", "saddle", "salmon", "shadow", "silver", "spruce", "summit",
	"tango", "thistle", "thunder", "tiger", "timber", "tulip", "umber", "valley",
	"velvet", "violet", "walnut", "willow", "wizard", "yonder", "zephyr", "zigzag",
}

// GenerateGradingPassword returns n dictionary words joined by sep.
func GenerateGradingPassword(n int, sep string) (string, error) {
	max := big.NewInt(int64(len(passwordWords)))
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		words = append(words, passwordWords[idx.Int64()])
	}
	return strings.Join(words, sep), nil
}

// SecretsEqual compares shared secrets in constant time.
func SecretsEqual(expected, given string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
