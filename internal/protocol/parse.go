package protocol

import (
	"bytes"
	"math"
	"strings"
)

const tilePrefix = "tile:"

// maxPositional caps a positional number so an overlong run still occupies
// its slot.
const maxPositional = math.MaxInt32

// Decode classifies a raw frame. Tile frames carry a text header terminated by
// the first newline followed by the binary payload; every other frame is text
// in its entirety.
func Decode(frame []byte) Message {
	if bytes.HasPrefix(frame, []byte(tilePrefix)) {
		idx := bytes.IndexByte(frame, '\n')
		if idx == -1 {
			return Parse(string(frame), nil, 0)
		}
		return Parse(string(frame[:idx]), frame, idx+1)
	}
	return Parse(string(frame), nil, 0)
}

// Parse classifies text by literal prefix in fixed priority order. data and
// offset locate the binary payload of tile messages; offset is clamped to data.
func Parse(text string, data []byte, offset int) Message {
	msg := Message{Kind: KindUnknown, Raw: text}
	for _, p := range prefixes {
		if !strings.HasPrefix(text, p.prefix) {
			continue
		}
		if p.kind == KindInvalidateTiles && strings.Contains(text, "EMPTY") {
			continue
		}
		msg.Kind = p.kind
		msg.Body = strings.TrimPrefix(text, p.prefix)
		break
	}
	if msg.Kind == KindUnknown {
		return msg
	}
	msg.Fields = parseFields(firstLine(text))
	if msg.Kind == KindTile && data != nil {
		if offset < 0 {
			offset = 0
		}
		if offset > len(data) {
			offset = len(data)
		}
		msg.Payload = data[offset:]
	}
	return msg
}

func firstLine(text string) string {
	if idx := strings.IndexAny(text, "\r\n"); idx != -1 {
		return text[:idx]
	}
	return text
}

func parseFields(line string) map[string]string {
	fields := map[string]string{}
	for _, token := range strings.Fields(line) {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			continue
		}
		canonical, known := fieldAliases[strings.ToLower(key)]
		if !known {
			canonical = strings.ToLower(key)
		}
		if _, exists := fields[canonical]; exists {
			continue
		}
		fields[canonical] = value
	}
	return fields
}

// positionalInts returns every run of ASCII digits in text, in document order.
// Runs too large for an int32 are clamped to maxPositional.
func positionalInts(text string) []int {
	var out []int
	i := 0
	for i < len(text) {
		if !isDigit(text[i]) {
			i++
			continue
		}
		var n int64
		for i < len(text) && isDigit(text[i]) {
			if n <= maxPositional {
				n = n*10 + int64(text[i]-'0')
			}
			i++
		}
		out = append(out, int(min(n, maxPositional)))
	}
	return out
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
