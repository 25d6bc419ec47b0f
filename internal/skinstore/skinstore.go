// Package skinstore persists player skin/avatar PNGs to S3-compatible
// object storage instead of inline database bytea columns, adapting the
// teacher's libs/go/s3 client (originally used for ManMan's server log
// archival) to the Player Tracker's skin updater. internal/db/postgres's
// player repository stores the returned keys; the bytes themselves never
// touch Postgres.
package skinstore

import (
	"context"
	"fmt"

	"github.com/xyqyear/mcadmin/libs/go/s3"
)

// Store puts/gets skin and avatar PNGs under deterministic keys derived
// from a player's db id.
type Store struct {
	client *s3.Client
}

func New(client *s3.Client) *Store {
	return &Store{client: client}
}

func skinKey(playerDbID int64) string   { return fmt.Sprintf("skins/%d/skin.png", playerDbID) }
func avatarKey(playerDbID int64) string { return fmt.Sprintf("skins/%d/avatar.png", playerDbID) }

// Put uploads both PNGs and returns the keys to persist alongside the
// player row.
func (s *Store) Put(ctx context.Context, playerDbID int64, skinPNG, avatarPNG []byte) (skinKeyOut, avatarKeyOut string, err error) {
	opts := &s3.UploadOptions{ContentType: "image/png"}

	sk := skinKey(playerDbID)
	if _, err := s.client.Upload(ctx, sk, skinPNG, opts); err != nil {
		return "", "", fmt.Errorf("skinstore: upload skin: %w", err)
	}
	ak := avatarKey(playerDbID)
	if _, err := s.client.Upload(ctx, ak, avatarPNG, opts); err != nil {
		return "", "", fmt.Errorf("skinstore: upload avatar: %w", err)
	}
	return sk, ak, nil
}

// Get downloads the skin PNG for a player, given the key stored in the
// player row.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("skinstore: download %s: %w", key, err)
	}
	return data, nil
}
