// Package protocol parses the server's text/binary message stream and encodes
// outbound client messages.
package protocol

// Kind classifies an inbound message.
type Kind int

const (
	// KindUnknown is any message without a recognized prefix; it is ignored.
	KindUnknown Kind = iota
	KindCursorVisible
	KindInvalidateCursor
	KindTextSelectionStart
	KindTextSelectionEnd
	KindGraphicSelection
	KindInvalidateTiles
	KindStateChanged
	KindStatus
	KindStatusIndicator
	KindTile
	KindTextSelection
	KindTextSelectionContent
	KindSetPart
	KindSearchNotFound
	KindStyles
	KindError
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindCursorVisible:        "cursorvisible",
	KindInvalidateCursor:     "invalidatecursor",
	KindTextSelectionStart:   "textselectionstart",
	KindTextSelectionEnd:     "textselectionend",
	KindGraphicSelection:     "graphicselection",
	KindInvalidateTiles:      "invalidatetiles",
	KindStateChanged:         "statechanged",
	KindStatus:               "status",
	KindStatusIndicator:      "statusindicator",
	KindTile:                 "tile",
	KindTextSelection:        "textselection",
	KindTextSelectionContent: "textselectioncontent",
	KindSetPart:              "setpart",
	KindSearchNotFound:       "searchnotfound",
	KindStyles:               "styles",
	KindError:                "error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Message is one classified inbound message.
type Message struct {
	Kind Kind
	// Raw is the full text part of the message, prefix included.
	Raw string
	// Body is Raw with the prefix removed.
	Body string
	// Fields holds key=value tokens of the first line, keyed by canonical name.
	Fields map[string]string
	// Payload is the binary tail of a tile message.
	Payload []byte
}

// prefixes is the fixed dispatch order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"cursorvisible:", KindCursorVisible},
	{"invalidatecursor:", KindInvalidateCursor},
	{"textselectionstart:", KindTextSelectionStart},
	{"textselectionend:", KindTextSelectionEnd},
	{"graphicselection:", KindGraphicSelection},
	{"invalidatetiles:", KindInvalidateTiles},
	{"statechanged:", KindStateChanged},
	{"status:", KindStatus},
	{"statusindicator", KindStatusIndicator},
	{"tile:", KindTile},
	{"textselection:", KindTextSelection},
	{"textselectioncontent:", KindTextSelectionContent},
	{"setpart:", KindSetPart},
	{"searchnotfound:", KindSearchNotFound},
	{"styles:", KindStyles},
	{"error:", KindError},
}

// fieldAliases maps wire keys to canonical field names.
var fieldAliases = map[string]string{
	"x":           "x",
	"y":           "y",
	"width":       "width",
	"height":      "height",
	"part":        "part",
	"parts":       "parts",
	"current":     "current",
	"currentpart": "current",
	"type":        "type",
	"zoom":        "zoom",
	"id":          "id",
	"prefetch":    "prefetch",
	"tileposx":    "tileposx",
	"tileposy":    "tileposy",
	"tilewidth":   "tilewidth",
	"tileheight":  "tileheight",
	"cmd":         "cmd",
	"commandname": "cmd",
	"kind":        "kind",
	"message":     "message",
}
