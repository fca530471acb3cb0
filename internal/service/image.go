package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/images"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/store"
)

// uploadProfileImage compresses the image sent in the multipart field 'profile_image', stores it
// and makes it the profile image of the contact. It responds with the updated contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/image --form "profile_image=@portrait.png"
func (s *Service) uploadProfileImage(c *gin.Context) {
	contact, found := s.lookupContact(c)
	if !found {
		return
	}

	fileHeader, err := c.FormFile("profile_image")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "profile_image is required"})
		return
	}
	if fileHeader.Size > images.MaxOriginalBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": images.ErrTooLarge.Error()})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		s.internalError(c, err, "failed to read image")
		return
	}
	defer file.Close()

	data, err := images.Compress(file)
	switch {
	case errors.Is(err, images.ErrTooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, images.ErrUnsupportedFormat):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": images.ErrUnsupportedFormat.Error()})
		return
	case err != nil:
		s.internalError(c, err, "failed to process image")
		return
	}

	ctx := c.Request.Context()
	name := fmt.Sprintf("%d-%s.jpg", time.Now().UnixMilli(), uuid.NewString())
	imageURL, err := s.images.Save(ctx, name, data)
	if err != nil {
		s.internalError(c, err, "failed to store image")
		return
	}
	if err := s.contacts.SetProfileImage(ctx, contact.Id, &imageURL); err != nil {
		// No contact refers to the file.
		if removeErr := s.images.Remove(context.WithoutCancel(ctx), name); removeErr != nil {
			s.log.Warn("could not remove orphaned image", zap.String("name", name), zap.Error(removeErr))
		}
		if errors.Is(err, store.ErrContactNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		s.internalError(c, err, "failed to update contact")
		return
	}

	s.log.Info("profile image stored",
		zap.Int64("contact_id", contact.Id),
		zap.Int64("original_bytes", fileHeader.Size),
		zap.Int("stored_bytes", len(data)),
	)
	contact.ProfileImageUrl = &imageURL
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteProfileImage removes the profile image from the contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/image --request "DELETE"
func (s *Service) deleteProfileImage(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	err := s.contacts.SetProfileImage(c.Request.Context(), id, nil)
	switch {
	case errors.Is(err, store.ErrContactNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case err != nil:
		s.internalError(c, err, "failed to update contact")
	default:
		c.IndentedJSON(http.StatusOK, gin.H{"message": "profile image deleted"})
	}
}
