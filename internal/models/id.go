package models

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

var (
	memberNamespace   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("teamkasse/member"))
	beverageNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("teamkasse/beverage"))
)

// NewID returns a random identifier for a new record.
func NewID() string {
	return uuid.NewString()
}

// NormalizeName folds a display name for case-insensitive comparison.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// NameSeed derives a stable seed from a member name. The same name in any
// letter case yields the same seed.
func NameSeed(name string) string {
	return uuid.NewSHA1(memberNamespace, []byte(NormalizeName(name))).String()
}

// BeverageID returns the stable identifier of a beverage taxonomy bucket.
func BeverageID(category BeverageCategory) string {
	return uuid.NewSHA1(beverageNamespace, []byte(category)).String()
}
