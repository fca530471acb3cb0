package service

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/store"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/vcard"
)

const vcardContentType = "text/vcard; charset=utf-8"

// exportContactByID responds with the vCard of the contact whose ID value matches the id parameter
// of the request URL. The file name is derived from the contact's first name.
//
// Example REST API call:
//
//	> curl --remote-name --remote-header-name http://localhost:8080/export-vcf/56
func (s *Service) exportContactByID(c *gin.Context) {
	contact, found := s.lookupContact(c)
	if !found {
		return
	}
	card := s.exporter.Card(c.Request.Context(), *contact)

	name := model.Value(contact.FirstName)
	if name == "" {
		name = "contact"
	}
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodeFilename(name+".vcf"))
	c.Data(http.StatusOK, vcardContentType, []byte(card))
}

// exportAllContacts responds with the vCards of all contacts in one file. The optional URL
// parameter 'q' restricts the export to the contacts matching a search.
//
// REST API calls:
//
//	> curl --output all_contacts.vcf http://localhost:8080/export-all-vcf
//	> curl --output muster.vcf "http://localhost:8080/export-all-vcf?q=muster"
func (s *Service) exportAllContacts(c *gin.Context) {
	ctx := c.Request.Context()
	contacts, err := s.contacts.List(ctx, store.Filter{Query: strings.TrimSpace(c.Query("q"))})
	if err != nil {
		s.internalError(c, err, "failed to generate VCF for all contacts")
		return
	}
	cards, err := s.exporter.Cards(ctx, contacts)
	if errors.Is(err, vcard.ErrNothingToExport) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.internalError(c, err, "failed to generate VCF for all contacts")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="all_contacts.vcf"`)
	c.Data(http.StatusOK, vcardContentType, []byte(cards))
}

// encodeFilename percent-encodes a file name for the filename* parameter of RFC 5987.
func encodeFilename(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}
