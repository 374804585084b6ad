package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FilterAction defines what happens to a matched metadata field.
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

var defaultFields = map[string]FilterAction{
	"password":      FilterActionRemove,
	"secret":        FilterActionRemove,
	"token":         FilterActionRemove,
	"totp_secret":   FilterActionRemove,
	"code":          FilterActionRemove,
	"session_token": FilterActionRemove,
	"email":         FilterActionHash,
	"phone":         FilterActionMask,
}

// MetadataFilter scrubs credentials and personal data from event metadata
// before it reaches storage.
type MetadataFilter struct {
	fields map[string]FilterAction
}

// NewMetadataFilter starts from the default field rules; extra overrides
// or extends them. Keys are matched case-insensitively.
func NewMetadataFilter(extra map[string]FilterAction) *MetadataFilter {
	f := &MetadataFilter{fields: make(map[string]FilterAction, len(defaultFields)+len(extra))}
	for k, v := range defaultFields {
		f.fields[k] = v
	}
	for k, v := range extra {
		f.fields[strings.ToLower(k)] = v
	}
	return f
}

// Apply returns a filtered copy of md.
func (f *MetadataFilter) Apply(md map[string]any) map[string]any {
	if len(md) == 0 {
		return md
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		action, ok := f.fields[strings.ToLower(k)]
		if !ok {
			out[k] = v
			continue
		}
		s, isString := v.(string)
		switch {
		case action == FilterActionRemove:
		case action == FilterActionHash && isString:
			sum := sha256.Sum256([]byte(s))
			out[k] = hex.EncodeToString(sum[:8])
		case action == FilterActionMask && isString:
			out[k] = mask(s)
		}
	}
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
