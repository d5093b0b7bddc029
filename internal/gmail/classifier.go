package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// PreferredMIMEType is the part type whose content becomes the record body.
const PreferredMIMEType = "text/plain"

// Payload is the shape of a message body: either a tree of parts or a
// single inline body.
type Payload interface {
	isPayload()
}

// MultipartPayload is a message whose content lives in sub-parts.
type MultipartPayload struct {
	Parts []*gmail.MessagePart
}

// SimplePayload is a message with one inline body. Data is the raw
// base64url text and may be empty.
type SimplePayload struct {
	Data string
}

func (MultipartPayload) isPayload() {}
func (SimplePayload) isPayload()    {}

// ClassifyPayload decides which body shape m carries. A message without a
// payload is an empty SimplePayload.
func ClassifyPayload(m *gmail.Message) Payload {
	if m == nil || m.Payload == nil {
		return SimplePayload{}
	}
	if len(m.Payload.Parts) > 0 {
		return MultipartPayload{Parts: m.Payload.Parts}
	}
	if m.Payload.Body == nil {
		return SimplePayload{}
	}
	return SimplePayload{Data: m.Payload.Body.Data}
}

// HeaderValue returns the first top-level header named header, matched
// case-insensitively, or "" when absent.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// walkParts visits part and its descendants depth-first, stopping as soon
// as fn returns true.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart) bool) bool {
	if part == nil {
		return false
	}
	if fn(part) {
		return true
	}
	for _, sub := range part.Parts {
		if walkParts(sub, fn) {
			return true
		}
	}
	return false
}

// firstTextPart returns the first non-attachment part of the preferred type
// in depth-first order, or nil.
func firstTextPart(parts []*gmail.MessagePart) *gmail.MessagePart {
	var found *gmail.MessagePart
	for _, p := range parts {
		if walkParts(p, func(mp *gmail.MessagePart) bool {
			if mp.Filename != "" || !isMIMEType(mp.MimeType, PreferredMIMEType) {
				return false
			}
			found = mp
			return true
		}) {
			return found
		}
	}
	return nil
}

func isMIMEType(got, want string) bool {
	if i := strings.IndexByte(got, ';'); i >= 0 {
		got = got[:i]
	}
	return strings.EqualFold(strings.TrimSpace(got), want)
}
