package players

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"time"

	"github.com/xyqyear/mcadmin/internal/events"
)

// SkinUpdater fetches a player's current skin from the configured profile
// service and crops the 8x8 face region into a stored avatar, per spec
// §4.3.4. Grounded on skin_fetcher.py / skin_updater.py; the crop uses the
// standard image/png + image/draw packages since nothing in the dependency
// pack provides an image manipulation library.
type SkinUpdater struct {
	logger  *slog.Logger
	store   Store
	profile *ProfileClient
}

func NewSkinUpdater(logger *slog.Logger, store Store, profile *ProfileClient, dispatcher *events.Dispatcher) *SkinUpdater {
	u := &SkinUpdater{logger: logger, store: store, profile: profile}
	dispatcher.OnPlayerSkinUpdateRequested(u.handle)
	return u
}

func (u *SkinUpdater) handle(e events.PlayerSkinUpdateRequested) {
	ctx := context.Background()

	if e.UUID == "" {
		u.logger.Debug("skipping skin update, no uuid known yet", "player", e.PlayerName)
		return
	}

	skinURL, err := u.profile.SkinURL(ctx, e.UUID)
	if err != nil {
		u.logger.Warn("fetch skin url failed", "player", e.PlayerName, "error", err)
		return
	}

	skinPNG, err := u.profile.DownloadSkin(ctx, skinURL)
	if err != nil {
		u.logger.Warn("download skin failed", "player", e.PlayerName, "error", err)
		return
	}

	avatarPNG, err := extractAvatar(skinPNG)
	if err != nil {
		u.logger.Error("extract avatar failed", "player", e.PlayerName, "error", err)
		return
	}

	if err := u.store.SetSkin(ctx, e.PlayerDbID, skinPNG, avatarPNG, time.Now().UTC()); err != nil {
		u.logger.Error("store skin failed", "player", e.PlayerName, "error", err)
		return
	}
	u.logger.Info("updated skin", "player", e.PlayerName)
}

// extractAvatar crops the 8x8 face region at (8,8) from a Minecraft skin
// texture and re-encodes it as a standalone PNG.
func extractAvatar(skinPNG []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(skinPNG))
	if err != nil {
		return nil, err
	}

	faceRect := image.Rect(0, 0, 8, 8)
	face := image.NewRGBA(faceRect)
	draw.Draw(face, faceRect, img, image.Pt(8, 8), draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, face); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
