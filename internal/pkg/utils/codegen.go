package utils

import (
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	// RoomCodeAlphabet is the character set of generated room codes.
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// RoomCodeLength is the length of a generated room code.
	RoomCodeLength = 6

	guestDigits       = "0123456789"
	guestPrefix       = "Guest-"
	guestSuffixLength = 4
)

var (
	roomCodeGenerator  = mustGenerator(RoomCodeAlphabet, RoomCodeLength)
	// CustomASCII draws no random bytes below length 5, so the guest
	// suffix is cut from a longer ID.
	guestNameGenerator = mustGenerator(guestDigits, guestSuffixLength+1)
)

func mustGenerator(alphabet string, length int) func() string {
	gen, err := nanoid.CustomASCII(alphabet, length)
	if err != nil {
		panic(err)
	}
	return gen
}

// GenerateRoomCode returns a random 6-character uppercase alphanumeric code.
func GenerateRoomCode() string {
	return roomCodeGenerator()
}

// GenerateGuestName returns a placeholder display name such as Guest-0427.
func GenerateGuestName() string {
	return guestPrefix + guestNameGenerator()[:guestSuffixLength]
}

// NormalizeRoomCode trims and upper-cases a user supplied room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode reports whether code is exactly RoomCodeLength characters
// from RoomCodeAlphabet.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, c) {
			return false
		}
	}
	return true
}
