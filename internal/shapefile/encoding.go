package shapefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Code pages as they appear in .cpg files written by common GIS tools.
var codePages = map[string]*charmap.Charmap{
	"1250":  charmap.Windows1250,
	"1251":  charmap.Windows1251,
	"1252":  charmap.Windows1252,
	"1253":  charmap.Windows1253,
	"1254":  charmap.Windows1254,
	"1257":  charmap.Windows1257,
	"437":   charmap.CodePage437,
	"850":   charmap.CodePage850,
	"866":   charmap.CodePage866,
	"88591": charmap.ISO8859_1,
	"88592": charmap.ISO8859_2,
	"88595": charmap.ISO8859_5,
	"88597": charmap.ISO8859_7,
}

// attributeDecoder converts raw .dbf bytes into UTF-8 text.
type attributeDecoder struct {
	name    string
	decoder *encoding.Decoder
}

// decode also strips the NUL and space padding of fixed-width .dbf cells.
func (d attributeDecoder) decode(raw string) string {
	raw = strings.TrimSpace(strings.Trim(raw, "\x00"))
	if d.decoder == nil {
		if utf8.ValidString(raw) {
			return raw
		}
		return strings.ToValidUTF8(raw, "\uFFFD")
	}
	out, err := d.decoder.String(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, "\uFFFD")
	}
	return out
}

// readCodePage resolves the .cpg sidecar. A missing file means UTF-8. An
// unknown code page also falls back to UTF-8 and is reported as a warning.
func readCodePage(cpgPath string) (attributeDecoder, string, error) {
	utf := attributeDecoder{name: "utf-8"}
	data, err := os.ReadFile(cpgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return utf, "", nil
		}
		return utf, "", fmt.Errorf("read code page: %w", err)
	}

	name := strings.TrimSpace(string(data))
	key := strings.ToUpper(name)
	key = strings.TrimPrefix(key, "ANSI ")
	key = strings.TrimPrefix(key, "CP")
	switch key {
	case "", "UTF-8", "UTF8", "65001":
		return utf, "", nil
	}
	compact := strings.TrimPrefix(strings.ReplaceAll(key, "-", ""), "ISO")
	if cm, ok := codePages[compact]; ok {
		return attributeDecoder{name: cm.String(), decoder: cm.NewDecoder()}, "", nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		canonical, _ := ianaindex.IANA.Name(enc)
		return attributeDecoder{name: strings.ToLower(canonical), decoder: enc.NewDecoder()}, "", nil
	}
	return utf, fmt.Sprintf("unknown code page %q, decoding attributes as utf-8", name), nil
}
