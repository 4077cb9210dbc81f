package quiz

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// TitleChecker reports whether a title is already taken for an owner.
type TitleChecker interface {
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
}

// resolveTitle returns desired when free, or desired with a short random
// suffix when the owner already has a quiz by that name. The check is
// read-then-write; the database unique index on (owner, title) catches the
// race, and the insert path retries with a fresh suffix.
func resolveTitle(ctx context.Context, store TitleChecker, ownerID, desired string) (string, error) {
	desired = strings.TrimSpace(desired)
	exists, err := store.TitleExists(ctx, ownerID, desired)
	if err != nil {
		return "", fmt.Errorf("check title: %w", err)
	}
	if !exists {
		return desired, nil
	}
	return suffixTitle(desired)
}

// suffixTitle appends "-" plus 3 random lowercase alphanumeric characters.
func suffixTitle(title string) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("title suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return title + "-" + string(buf), nil
}
