package domain

import (
	"math/rand"
	"regexp"
	"strconv"
)

var roomCodePattern = regexp.MustCompile(`^\d{6}$`)

// GenerateRoomCode produces a 6-digit numeric code in [100000, 999999],
// uniform over the space. Collision handling belongs to the directory.
func GenerateRoomCode(rng *rand.Rand) string {
	return strconv.Itoa(100000 + rng.Intn(900000))
}

// IsValidRoomCode reports whether code is exactly six ASCII digits.
func IsValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}
