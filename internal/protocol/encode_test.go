package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"pkt.systems/tilesync/schema"
)

func TestTileRequestFormat(t *testing.T) {
	key := schema.TileKey{X: 1, Y: 2, Zoom: 10, Part: 3}
	req := TileRequest(key, 256, schema.RectXYWH(3840, 7680, 3840, 3840))
	want := "tile part=3 width=256 height=256 tileposx=3840 tileposy=7680 tilewidth=3840 tileheight=3840"
	if req.Text != want {
		t.Fatalf("expected %q, got %q", want, req.Text)
	}
	if req.Tile == nil || *req.Tile != key {
		t.Fatalf("expected request tagged with %v, got %v", key, req.Tile)
	}
}

func TestIntentFormats(t *testing.T) {
	cases := map[string]Request{
		"mouse type=buttondown x=10 y=20 count=1": Mouse("buttondown", 10, 20, 1),
		"key type=input char=97 key=0":            Key("input", 97, 0),
		"selectgraphic type=start x=5 y=6":        SelectGraphic("start", schema.Point{X: 5, Y: 6}),
		"selecttext type=end x=7 y=8":             SelectText("end", schema.Point{X: 7, Y: 8}),
		"setclientpart part=4":                    SetClientPart(4),
		"requestloksession":                       RequestSession(),
		"gettextselection mimetype=text/plain;charset=utf-8": GetTextSelection(),
		"load url=file:///tmp/doc.odt":                       Load("file:///tmp/doc.odt"),
	}
	for want, req := range cases {
		if req.Text != want {
			t.Fatalf("expected %q, got %q", want, req.Text)
		}
		if req.Tile != nil {
			t.Fatalf("%q should not carry a tile key", want)
		}
	}
}

func TestSearchCommand(t *testing.T) {
	req, err := Search(`say "hi"`, true)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	const prefix = "uno .uno:ExecuteSearch "
	if !strings.HasPrefix(req.Text, prefix) {
		t.Fatalf("unexpected command %q", req.Text)
	}
	var body map[string]map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(req.Text, prefix)), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["SearchItem.SearchString"]["type"] != "string" || body["SearchItem.SearchString"]["value"] != `say "hi"` {
		t.Fatalf("unexpected search string %+v", body["SearchItem.SearchString"])
	}
	if body["SearchItem.Backward"]["type"] != "boolean" || body["SearchItem.Backward"]["value"] != true {
		t.Fatalf("unexpected backward flag %+v", body["SearchItem.Backward"])
	}
}
