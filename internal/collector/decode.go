package collector

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// legacyEncodings are tried in order after UTF-8 fails. Labels follow the
// WHATWG encoding registry.
var legacyEncodings = []string{"gbk", "gb2312", "iso-8859-1"}

// decode converts raw file bytes to text. It never fails: when no encoding
// decodes cleanly the bytes are converted lossily. The returned label names
// the encoding that was used.
func decode(data []byte) (string, string) {
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	for _, label := range legacyEncodings {
		enc, err := htmlindex.Get(label)
		if err != nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out), label
		}
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), "lossy"
}
