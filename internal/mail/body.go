package mail

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// textPart parses a raw RFC 2822 message with go-message and returns the
// decoded body of its first inline text/plain part. It returns an empty
// string if the message cannot be parsed or has no such part.
func textPart(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && (part == nil || !message.IsUnknownCharset(err)) {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		if !strings.EqualFold(contentType, "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}

	return ""
}
