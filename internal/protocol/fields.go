package protocol

import (
	"encoding/json"
	"strconv"
	"strings"

	"pkt.systems/tilesync/schema"
)

// Int returns a numeric key=value field.
func (m Message) Int(name string) (int, bool) {
	value, ok := m.Fields[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Field returns a key=value field.
func (m Message) Field(name string) (string, bool) {
	value, ok := m.Fields[name]
	return value, ok
}

// Ints returns the positional integers embedded in the message.
func (m Message) Ints() []int {
	return positionalInts(m.Raw)
}

// Rect reads the first four positional integers as x, y, width, height.
// ok is false when the message carries fewer than four numbers.
func (m Message) Rect() (schema.Rect, bool) {
	ints := m.Ints()
	if len(ints) < 4 {
		return schema.NoRect, false
	}
	return schema.RectXYWH(ints[0], ints[1], ints[2], ints[3]), true
}

// Rects reads every complete group of four positional integers.
func (m Message) Rects() []schema.Rect {
	ints := m.Ints()
	rects := make([]schema.Rect, 0, len(ints)/4)
	for i := 0; i+3 < len(ints); i += 4 {
		rects = append(rects, schema.RectXYWH(ints[i], ints[i+1], ints[i+2], ints[i+3]))
	}
	return rects
}

// Bool reads a boolean body such as "cursorvisible: true".
func (m Message) Bool() bool {
	return strings.TrimSpace(m.Body) == "true"
}

// Empty reports whether the body is the literal EMPTY marker.
func (m Message) Empty() bool {
	return strings.Contains(m.Body, "EMPTY")
}

// Invalidation is the region named by an invalidatetiles message.
type Invalidation struct {
	Rect schema.Rect
	Part int
	// HasPart is false when the part must be taken from the current view.
	HasPart bool
}

// Invalidation reads explicit x, y, width, height, part fields and falls back
// to positional integers when any of x, y or part is missing.
func (m Message) Invalidation() (Invalidation, bool) {
	x, okX := m.Int("x")
	y, okY := m.Int("y")
	part, okPart := m.Int("part")
	if okX && okY && okPart {
		width, _ := m.Int("width")
		height, _ := m.Int("height")
		return Invalidation{Rect: schema.RectXYWH(x, y, width, height), Part: part, HasPart: true}, true
	}
	rect, ok := m.Rect()
	if !ok {
		return Invalidation{}, false
	}
	return Invalidation{Rect: rect}, true
}

// Status is the document description carried by a status message.
type Status struct {
	Type    schema.DocType
	Width   int
	Height  int
	Parts   int
	Current int
	Names   []string
}

// Status parses a status message. ok is false without a document size.
func (m Message) Status() (Status, bool) {
	width, _ := m.Int("width")
	height, _ := m.Int("height")
	if width == 0 || height == 0 {
		return Status{}, false
	}
	docType, _ := m.Field("type")
	parts, _ := m.Int("parts")
	current, _ := m.Int("current")
	st := Status{
		Type:    schema.DocType(docType),
		Width:   width,
		Height:  height,
		Parts:   parts,
		Current: current,
	}
	st.Names = lastLines(m.Raw, parts)
	return st, true
}

func lastLines(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	if n > len(lines) {
		n = len(lines)
	}
	return append([]string(nil), lines[len(lines)-n:]...)
}

// TileHeader is the header of a tile response.
type TileHeader struct {
	X        int
	Y        int
	Zoom     int
	HasZoom  bool
	Part     int
	Width    int
	Height   int
	ID       int
	HasID    bool
	PreFetch bool
	// PosX and PosY are twips positions when the server echoes tileposx/tileposy.
	PosX       int
	PosY       int
	TileWidth  int
	TileHeight int
	HasPos     bool
}

// Tile parses the tile header fields.
func (m Message) Tile() TileHeader {
	h := TileHeader{}
	h.X, _ = m.Int("x")
	h.Y, _ = m.Int("y")
	h.Zoom, h.HasZoom = m.Int("zoom")
	h.Part, _ = m.Int("part")
	h.Width, _ = m.Int("width")
	h.Height, _ = m.Int("height")
	h.ID, h.HasID = m.Int("id")
	if flag, ok := m.Field("prefetch"); ok {
		h.PreFetch = flag == "true"
	}
	posX, okX := m.Int("tileposx")
	posY, okY := m.Int("tileposy")
	tw, okW := m.Int("tilewidth")
	th, okH := m.Int("tileheight")
	if okX && okY && okW && okH && tw > 0 && th > 0 {
		h.PosX, h.PosY, h.TileWidth, h.TileHeight = posX, posY, tw, th
		h.HasPos = true
		h.X = posX / tw
		h.Y = posY / th
	}
	return h
}

// StateChange splits ".uno:NAME=VALUE". ok is false when either side is empty.
func (m Message) StateChange() (command, state string, ok bool) {
	body := strings.TrimSpace(m.Body)
	body = strings.TrimPrefix(body, ".uno:")
	idx := strings.LastIndex(body, "=")
	if idx == -1 {
		return "", "", false
	}
	command, state = body[:idx], body[idx+1:]
	if command == "" || state == "" {
		return "", "", false
	}
	return command, state, true
}

// Indicator reads a statusindicatorstart/setvalue/finish message.
func (m Message) Indicator() (schema.IndicatorStatus, int, bool) {
	switch {
	case strings.HasPrefix(m.Raw, "statusindicatorstart:"):
		return schema.IndicatorStart, 0, true
	case strings.HasPrefix(m.Raw, "statusindicatorsetvalue:"):
		ints := m.Ints()
		if len(ints) == 0 {
			return schema.IndicatorSetValue, 0, false
		}
		return schema.IndicatorSetValue, ints[0], true
	case strings.HasPrefix(m.Raw, "statusindicatorfinish:"):
		return schema.IndicatorFinish, 0, true
	}
	return "", 0, false
}

// ServerError reads the failed command and error kind.
func (m Message) ServerError() schema.ErrorEvent {
	cmd, _ := m.Field("cmd")
	kind, _ := m.Field("kind")
	message, _ := m.Field("message")
	return schema.ErrorEvent{Command: cmd, Kind: kind, Message: message}
}

// SearchPhrase returns the phrase that was not found.
func (m Message) SearchPhrase() string {
	return tail(m.Raw, len("searchnotfound: "))
}

// Content returns the plain text selection content.
func (m Message) Content() string {
	return tail(m.Raw, len("textselectioncontent: "))
}

// Styles decodes the JSON style catalog.
func (m Message) Styles() (map[string]any, error) {
	styles := map[string]any{}
	if err := json.Unmarshal([]byte(tail(m.Raw, len("styles: "))), &styles); err != nil {
		return nil, err
	}
	return styles, nil
}

// SetPart returns the first positional integer.
func (m Message) SetPart() (int, bool) {
	ints := m.Ints()
	if len(ints) == 0 {
		return 0, false
	}
	return ints[0], true
}

func tail(text string, offset int) string {
	if offset >= len(text) {
		return ""
	}
	return text[offset:]
}
