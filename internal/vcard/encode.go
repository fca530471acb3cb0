// Package vcard turns contacts into vCard 3.0 text. Photo lookup and text assembly are kept
// apart: a PhotoResolver fetches the optional profile image, Encode only formats.
package vcard

import (
	"encoding/base64"
	"strings"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
)

// defaultPhotoType is used when the image host does not declare a content type.
const defaultPhotoType = "JPEG"

// noteEscaper escapes the characters that have a meaning in vCard text values. The replacer
// works in a single pass, so characters introduced by one substitution are never escaped again.
// CRLF and a lone CR count as one line break each.
var noteEscaper = strings.NewReplacer(`,`, `\,`, `;`, `\;`, "\r\n", `\n`, "\r", `\n`, "\n", `\n`)

// Photo is an image resolved from a contact's profile image URL.
type Photo struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type,omitempty"`
}

// Type returns the vCard TYPE tag for the photo.
func (p *Photo) Type() string {
	return TypeTag(p.ContentType)
}

// TypeTag derives the vCard image type from a Content-Type header value, e.g. "image/png"
// becomes "PNG". Parameters are ignored. Without a usable subtype the tag is JPEG.
func TypeTag(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	_, subtype, found := strings.Cut(mediaType, "/")
	subtype = strings.TrimSpace(subtype)
	if !found || subtype == "" {
		return defaultPhotoType
	}
	return strings.ToUpper(subtype)
}

// EscapeText escapes commas, semicolons and line breaks of a vCard text value. It is a one-way
// transform: escaping an escaped string escapes it again.
func EscapeText(s string) string {
	return noteEscaper.Replace(s)
}

// Encode formats a single contact as a vCard 3.0 block terminated by a newline. Absent optional
// fields are left out; photo may be nil.
func Encode(contact model.Contact, photo *Photo) string {
	first := model.Value(contact.FirstName)
	last := model.Value(contact.LastName)

	var b strings.Builder
	b.WriteString("BEGIN:VCARD\n")
	b.WriteString("VERSION:3.0\n")
	if fullName := strings.TrimSpace(first + " " + last); fullName != "" {
		writeLine(&b, "FN", fullName)
	}
	writeLine(&b, "N", last+";"+first+";;;")
	writeOptional(&b, "TEL", contact.PhoneNumber)
	writeOptional(&b, "EMAIL", contact.Email)
	writeOptional(&b, "ORG", contact.Company)
	writeOptional(&b, "TITLE", contact.JobTitle)
	if notes := model.Value(contact.Notes); notes != "" {
		writeLine(&b, "NOTE", EscapeText(notes))
	}
	writeOptional(&b, "UID", contact.Uid)
	if photo != nil && len(photo.Data) > 0 {
		writeLine(&b, "PHOTO;ENCODING=b64;TYPE="+photo.Type(), base64.StdEncoding.EncodeToString(photo.Data))
	}
	b.WriteString("END:VCARD\n")
	return b.String()
}

func writeOptional(b *strings.Builder, property string, value *string) {
	if v := model.Value(value); v != "" {
		writeLine(b, property, v)
	}
}

func writeLine(b *strings.Builder, property string, value string) {
	b.WriteString(property)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('\n')
}
