package protocol

import (
	"encoding/json"
	"fmt"

	"pkt.systems/tilesync/schema"
)

// Request is one outbound message. Tile requests carry the key their response
// will be correlated with.
type Request struct {
	Text string
	Tile *schema.TileKey
}

// TileRequest asks the server to render one tile.
func TileRequest(key schema.TileKey, tileSize int, footprint schema.Rect) Request {
	size := footprint.Size()
	k := key
	return Request{
		Text: fmt.Sprintf("tile part=%d width=%d height=%d tileposx=%d tileposy=%d tilewidth=%d tileheight=%d",
			key.Part, tileSize, tileSize, footprint.Min.X, footprint.Min.Y, size.X, size.Y),
		Tile: &k,
	}
}

// Mouse posts a mouse event at a twips position.
func Mouse(eventType string, x, y, count int) Request {
	return Request{Text: fmt.Sprintf("mouse type=%s x=%d y=%d count=%d", eventType, x, y, count)}
}

// Key posts a keyboard event.
func Key(eventType string, charCode, keyCode int) Request {
	return Request{Text: fmt.Sprintf("key type=%s char=%d key=%d", eventType, charCode, keyCode)}
}

// SelectGraphic posts a graphic selection resize intent.
func SelectGraphic(eventType string, p schema.Point) Request {
	return Request{Text: fmt.Sprintf("selectgraphic type=%s x=%d y=%d", eventType, p.X, p.Y)}
}

// SelectText posts a text selection handle intent.
func SelectText(eventType string, p schema.Point) Request {
	return Request{Text: fmt.Sprintf("selecttext type=%s x=%d y=%d", eventType, p.X, p.Y)}
}

// SetClientPart tells the server which part the client displays.
func SetClientPart(part int) Request {
	return Request{Text: fmt.Sprintf("setclientpart part=%d", part)}
}

// GetTextSelection requests the plain text of the current selection.
func GetTextSelection() Request {
	return Request{Text: "gettextselection mimetype=text/plain;charset=utf-8"}
}

// RequestSession asks the server for an editing session.
func RequestSession() Request {
	return Request{Text: "requestloksession"}
}

// Load opens a document on a fresh connection.
func Load(url string) Request {
	return Request{Text: "load url=" + url}
}

type searchString struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type searchBool struct {
	Type  string `json:"type"`
	Value bool   `json:"value"`
}

type searchArgs struct {
	SearchString searchString `json:"SearchItem.SearchString"`
	Backward     searchBool   `json:"SearchItem.Backward"`
}

// Search builds the uno search command.
func Search(phrase string, backward bool) (Request, error) {
	body, err := json.Marshal(searchArgs{
		SearchString: searchString{Type: "string", Value: phrase},
		Backward:     searchBool{Type: "boolean", Value: backward},
	})
	if err != nil {
		return Request{}, err
	}
	return Request{Text: "uno .uno:ExecuteSearch " + string(body)}, nil
}
