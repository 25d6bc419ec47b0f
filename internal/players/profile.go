package players

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProfileClient talks to Mojang's public profile/textures services, used to
// resolve a player name to a UUID and to fetch skin texture URLs.
type ProfileClient struct {
	httpClient *http.Client
}

func NewProfileClient() *ProfileClient {
	return &ProfileClient{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type mojangProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveUUID looks up name via api.mojang.com. Returns (uuid, true, nil) on
// success, (_, false, nil) on a 404 (unknown name), and an error for a
// transport failure, any other non-200 status, or an undecodable body.
func (c *ProfileClient) ResolveUUID(ctx context.Context, name string) (string, bool, error) {
	url := fmt.Sprintf("https://api.mojang.com/users/profiles/minecraft/%s", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("mojang profile lookup %s: status %d", name, resp.StatusCode)
	}

	var profile mojangProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", false, fmt.Errorf("decode mojang profile: %w", err)
	}
	return profile.ID, true, nil
}

type sessionProfile struct {
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
}

type texturesPayload struct {
	Textures struct {
		Skin struct {
			URL string `json:"url"`
		} `json:"SKIN"`
	} `json:"textures"`
}

// SkinURL fetches the session profile for uuid and extracts the skin
// texture URL.
func (c *ProfileClient) SkinURL(ctx context.Context, uuid string) (string, error) {
	url := fmt.Sprintf("https://sessionserver.mojang.com/session/minecraft/profile/%s", uuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session profile %s: status %d", uuid, resp.StatusCode)
	}

	var profile sessionProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode session profile: %w", err)
	}

	for _, p := range profile.Properties {
		if p.Name != "textures" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(p.Value)
		if err != nil {
			return "", fmt.Errorf("decode textures property: %w", err)
		}
		var textures texturesPayload
		if err := json.Unmarshal(raw, &textures); err != nil {
			return "", fmt.Errorf("unmarshal textures payload: %w", err)
		}
		if textures.Textures.Skin.URL == "" {
			return "", fmt.Errorf("profile %s has no skin texture", uuid)
		}
		return textures.Textures.Skin.URL, nil
	}

	return "", fmt.Errorf("profile %s missing textures property", uuid)
}

// DownloadSkin fetches the raw PNG bytes at url.
func (c *ProfileClient) DownloadSkin(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download skin: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
