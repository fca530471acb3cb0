package vcard

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
)

func str(s string) *string {
	return &s
}

// TestEncodeJaneDoe encodes a typical contact without a photo and compares the full output.
func TestEncodeJaneDoe(t *testing.T) {
	contact := model.Contact{
		Id:          1,
		FirstName:   str("Jane"),
		LastName:    str("Doe"),
		PhoneNumber: str("0812345678"),
		Email:       str("jane@x.com"),
		Uid:         str("abc123"),
	}
	expected := "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:Jane Doe\n" +
		"N:Doe;Jane;;;\n" +
		"TEL:0812345678\n" +
		"EMAIL:jane@x.com\n" +
		"UID:abc123\n" +
		"END:VCARD\n"
	assert.Equal(t, expected, Encode(contact, nil))
}

// TestEncodeAllFields expects every property in its fixed position.
func TestEncodeAllFields(t *testing.T) {
	contact := model.Contact{
		FirstName:       str("Erika"),
		LastName:        str("Mustermann"),
		PhoneNumber:     str("+49 0815 4711"),
		Email:           str("erika@example.org"),
		Company:         str("Muster GmbH"),
		JobTitle:        str("Engineer"),
		Notes:           str("met at FOSDEM; likes tea, not coffee"),
		Uid:             str("u-1"),
		ProfileImageUrl: str("https://images.example.org/erika.png"),
	}
	photo := &Photo{Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}
	expected := "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:Erika Mustermann\n" +
		"N:Mustermann;Erika;;;\n" +
		"TEL:+49 0815 4711\n" +
		"EMAIL:erika@example.org\n" +
		"ORG:Muster GmbH\n" +
		"TITLE:Engineer\n" +
		"NOTE:met at FOSDEM\\; likes tea\\, not coffee\n" +
		"UID:u-1\n" +
		"PHOTO;ENCODING=b64;TYPE=PNG:" + base64.StdEncoding.EncodeToString(photo.Data) + "\n" +
		"END:VCARD\n"
	assert.Equal(t, expected, Encode(contact, photo))
}

// TestEncodeWithoutLastName expects an empty leading component in the N property.
func TestEncodeWithoutLastName(t *testing.T) {
	card := Encode(model.Contact{FirstName: str("Cher")}, nil)
	assert.Contains(t, card, "\nN:;Cher;;;\n")
	assert.Contains(t, card, "\nFN:Cher\n")
}

// TestEncodeEmptyContact expects that a contact without any field still yields a well-formed
// block with the mandatory lines only.
func TestEncodeEmptyContact(t *testing.T) {
	card := Encode(model.Contact{LastName: str("")}, nil)
	assert.Equal(t, "BEGIN:VCARD\nVERSION:3.0\nN:;;;;\nEND:VCARD\n", card)
}

// TestEncodeWithoutPhoto expects that a profile image URL alone does not produce a PHOTO line.
func TestEncodeWithoutPhoto(t *testing.T) {
	contact := model.Contact{FirstName: str("Adam"), ProfileImageUrl: str("http://unreachable.invalid/a.jpg")}
	assert.NotContains(t, Encode(contact, nil), "PHOTO")
	assert.NotContains(t, Encode(contact, &Photo{}), "PHOTO")
}

// TestEncodePhotoKeepsBytes expects that the embedded data decodes to the original image.
func TestEncodePhotoKeepsBytes(t *testing.T) {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	card := Encode(model.Contact{FirstName: str("Pavla")}, &Photo{Data: data})

	var photoLine string
	for _, line := range strings.Split(card, "\n") {
		if strings.HasPrefix(line, "PHOTO;") {
			photoLine = line
		}
	}
	prefix := "PHOTO;ENCODING=b64;TYPE=JPEG:"
	assert.True(t, strings.HasPrefix(photoLine, prefix), photoLine)
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(photoLine, prefix))
	assert.NoError(t, err)
	assert.Equal(t, data, decoded)
	assert.NotContains(t, card, "\r")
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `a\,b\;c\nd`, EscapeText("a,b;c\nd"))
	assert.Equal(t, "plain", EscapeText("plain"))
	assert.Equal(t, `line one\nline two\nline three`, EscapeText("line one\r\nline two\rline three"))
	assert.NotContains(t, Encode(model.Contact{FirstName: str("Jane"), Notes: str("a\r\nb")}, nil), "\r")
	// escaping is one-way, not idempotent
	assert.Equal(t, `a\\,b`, EscapeText(`a\,b`))
}

func TestTypeTag(t *testing.T) {
	tags := map[string]string{
		"":                         "JPEG",
		"image/png":                "PNG",
		"image/jpeg":               "JPEG",
		"image/webp; charset=utf8": "WEBP",
		"image/":                   "JPEG",
		"garbage":                  "JPEG",
		"IMAGE/gif":                "GIF",
	}
	for contentType, tag := range tags {
		assert.Equal(t, tag, TypeTag(contentType), contentType)
	}
}
