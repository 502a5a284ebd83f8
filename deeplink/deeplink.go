// Package deeplink builds companion-app deep links. The companion game
// receives the item to purchase through launch data: a JSON payload,
// base64-encoded to discourage casual tampering, then percent-encoded
// for safe transport inside the URI.
package deeplink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/buxback/gild/item"
)

// DefaultPlaceID is the companion game's place id.
const DefaultPlaceID = "118219754091031"

// GameURL is the manual fallback link to the companion game.
const GameURL = "https://www.roblox.com/games/" + DefaultPlaceID + "/BuxBack-Roblox-Cash-Back"

const scheme = "roblox"

type payload struct {
	ItemID   string `json:"itemId"`
	ItemType string `json:"itemType"`
}

// ItemType maps a category to the launch-data item type understood by
// the companion game: "catalog", "bundle" or "gamepass".
func ItemType(cat item.Category) string {
	switch cat {
	case item.CategoryGamepass:
		return "gamepass"
	case item.CategoryBundle:
		return "bundle"
	default:
		return "catalog"
	}
}

// Build returns the deep link URI for an item:
//
//	roblox://placeId=<ID>&launchData=<urlencode(base64(json))>
func Build(placeID, itemID string, cat item.Category) string {
	if placeID == "" {
		placeID = DefaultPlaceID
	}
	data, _ := json.Marshal(payload{ItemID: itemID, ItemType: ItemType(cat)})
	encoded := url.QueryEscape(base64.StdEncoding.EncodeToString(data))
	return fmt.Sprintf("%s://placeId=%s&launchData=%s", scheme, placeID, encoded)
}

// Parse decodes a deep link back into (placeID, itemID, itemType).
// Used by tests and by the MCP tool surface; the browser side never
// parses, only builds.
func Parse(link string) (placeID, itemID, itemType string, err error) {
	rest, ok := strings.CutPrefix(link, scheme+"://")
	if !ok {
		return "", "", "", fmt.Errorf("deeplink: unexpected scheme in %q", link)
	}
	vals, err := url.ParseQuery(rest)
	if err != nil {
		return "", "", "", fmt.Errorf("deeplink: parse query: %w", err)
	}
	placeID = vals.Get("placeId")
	raw, err := base64.StdEncoding.DecodeString(vals.Get("launchData"))
	if err != nil {
		return "", "", "", fmt.Errorf("deeplink: decode launch data: %w", err)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", "", "", fmt.Errorf("deeplink: unmarshal launch data: %w", err)
	}
	return placeID, p.ItemID, p.ItemType, nil
}
