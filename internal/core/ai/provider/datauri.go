package provider

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SplitDataURI 拆解 data URI，回傳 MIME 子類型（如 jpeg）與原始位元組
func SplitDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return strings.TrimPrefix(mime, "image/"), data, nil
}
