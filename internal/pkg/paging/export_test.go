package paging

import "encoding/base64"

func EncodeCursorRaw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
