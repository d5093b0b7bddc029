package gmail

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/ingestly/ingestly/internal/pipeline"
)

var errInvalidUTF8 = errors.New("body is not valid UTF-8")

// Normalize maps a full-format Gmail message onto a pipeline record. Missing
// headers and bodies become empty strings; a body that is not valid
// base64url or not UTF-8 is a *pipeline.DecodeError.
func Normalize(m *gmail.Message, nctx pipeline.NormalizeContext) (pipeline.Record, error) {
	if m == nil {
		return pipeline.Record{}, &pipeline.DecodeError{Field: "message", Err: errors.New("nil message")}
	}

	body, err := messageBody(m)
	if err != nil {
		return pipeline.Record{}, err
	}

	return pipeline.Record{
		ID:            m.Id,
		Title:         HeaderValue(m, "Subject"),
		Timestamp:     HeaderValue(m, "Date"),
		Body:          body,
		Source:        ExtractAddress(HeaderValue(m, "From")),
		PipelineLabel: nctx.PipelineLabel,
		ProcessedAt:   nctx.ProcessedAt(),
	}, nil
}

func messageBody(m *gmail.Message) (string, error) {
	var data string
	switch p := ClassifyPayload(m).(type) {
	case MultipartPayload:
		part := firstTextPart(p.Parts)
		if part == nil || part.Body == nil {
			return "", nil
		}
		data = part.Body.Data
	case SimplePayload:
		data = p.Data
	}
	return DecodeBody(m.Id, data)
}

// DecodeBody decodes Gmail's URL-safe base64 body encoding. Padding is
// optional.
func DecodeBody(recordID, data string) (string, error) {
	if data == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", &pipeline.DecodeError{RecordID: recordID, Field: "body", Err: err}
	}
	if !utf8.Valid(raw) {
		return "", &pipeline.DecodeError{RecordID: recordID, Field: "body", Err: errInvalidUTF8}
	}
	return string(raw), nil
}

// ExtractAddress pulls the bare address out of a From header. When the value
// holds both angle brackets it returns the text after the first '<' up to
// the following '>'; otherwise the value is returned unchanged.
func ExtractAddress(from string) string {
	if !strings.Contains(from, "<") || !strings.Contains(from, ">") {
		return from
	}
	_, rest, _ := strings.Cut(from, "<")
	rest, _, _ = strings.Cut(rest, "<")
	addr, _, _ := strings.Cut(rest, ">")
	return addr
}

// EmailRow lays a record out in the emails table columns.
func EmailRow(r pipeline.Record) pipeline.Row {
	return pipeline.Row{
		"message_id":    r.ID,
		"subject":       r.Title,
		"date":          r.Timestamp,
		"body":          r.Body,
		"from_email":    r.Source,
		"pipeline_name": r.PipelineLabel,
		"processed_at":  r.ProcessedAt,
	}
}
