package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/images"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
	"gitlab.com/dirk.krummacker/contacts-vcard/internal/store"
)

// healthTimeout bounds the database ping of the health endpoint.
const healthTimeout = 2 * time.Second

// ContactStore is the persistence the service works on.
type ContactStore interface {
	List(ctx context.Context, filter store.Filter) ([]model.Contact, error)
	Get(ctx context.Context, id int64) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, id int64, submitted model.Contact) (*model.Contact, error)
	SetProfileImage(ctx context.Context, id int64, imageURL *string) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Exporter renders contacts as vCards.
type Exporter interface {
	Card(ctx context.Context, contact model.Contact) string
	Cards(ctx context.Context, contacts []model.Contact) (string, error)
}

// Options are the settings of the HTTP layer.
type Options struct {
	// ImageDir is served under /images. Leave empty if images are hosted elsewhere.
	ImageDir string

	// RequestLogging writes a log entry for every request.
	RequestLogging bool
}

// Service holds the collaborators of the HTTP handlers.
type Service struct {
	contacts ContactStore
	exporter Exporter
	images   images.Store
	log      *zap.Logger
	options  Options
}

// New creates the service. All collaborators are required.
func New(contacts ContactStore, exporter Exporter, imageStore images.Store, log *zap.Logger, options Options) *Service {
	return &Service{
		contacts: contacts,
		exporter: exporter,
		images:   imageStore,
		log:      log,
		options:  options,
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func (s *Service) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(recovery(s.log))
	if s.options.RequestLogging {
		router.Use(requestLogger(s.log))
	} else {
		s.log.Info("Turning off HTTP request logging.")
	}

	router.GET("/health", s.health)
	router.GET("/contacts", s.findContacts)
	router.POST("/contacts", s.createContact)
	router.GET("/contacts/:id", s.findContactByID)
	router.PUT("/contacts/:id", s.updateContactByID)
	router.DELETE("/contacts/:id", s.deleteContactByID)
	router.POST("/contacts/:id/image", s.uploadProfileImage)
	router.DELETE("/contacts/:id/image", s.deleteProfileImage)
	router.GET("/export-vcf/:id", s.exportContactByID)
	router.GET("/export-all-vcf", s.exportAllContacts)
	if s.options.ImageDir != "" {
		router.Static(images.URLPath, s.options.ImageDir)
	}
	return router
}

// health responds with OK as long as the database can be reached.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func (s *Service) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := s.contacts.Ping(ctx); err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// findContacts responds with a list of contacts as JSON, newest first.
//
// The URL parameter 'q' is matched case-insensitively against all text fields of a contact.
//
// The URL parameter 'limit' specifies how many contacts matching the search criteria are returned.
// The URL parameter 'offset' specifies how many items from the sorted list of results are skipped
// in the beginning. Together with the 'limit' parameter, one can implement search result paging.
//
// REST API calls:
//
//	> curl "http://localhost:8080/contacts"
//	> curl "http://localhost:8080/contacts?q=smi"
//	> curl "http://localhost:8080/contacts?limit=20&offset=60"
func (s *Service) findContacts(c *gin.Context) {
	limit, offset, success := parseLimitAndOffset(c)
	if !success {
		return
	}
	contacts, err := s.contacts.List(c.Request.Context(), store.Filter{
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.internalError(c, err, "failed to fetch contacts")
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// parseLimitAndOffset inspects the URL parameters and determines values for limit and offset of
// the result set. A limit of zero stands for all results.
func parseLimitAndOffset(c *gin.Context) (limit int64, offset int64, success bool) {
	var err error
	if value := c.Query("limit"); value != "" {
		limit, err = strconv.ParseInt(value, 10, 64)
		if err != nil || limit < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return 0, 0, false
		}
	}
	if value := c.Query("offset"); value != "" {
		offset, err = strconv.ParseInt(value, 10, 64)
		if err != nil || offset < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})
			return 0, 0, false
		}
	}
	return limit, offset, true
}

// createContact inserts the contact specified in the request's JSON into the database. It responds
// with the full contact data including the newly assigned id and uid.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"first_name": "Hans", "last_name": "Wurst", "phone_number": "0815"}'
func (s *Service) createContact(c *gin.Context) {
	var newContact model.Contact
	if err := c.ShouldBindJSON(&newContact); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(model.Value(newContact.FirstName)) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "first name is required"})
		return
	}

	// Identity and timestamps are assigned by the service, not by the client.
	newContact.Id = 0
	newContact.Uid = nil
	newContact.CreatedAt = nil
	newContact.UpdatedAt = nil

	if err := s.contacts.Create(c.Request.Context(), &newContact); err != nil {
		s.internalError(c, err, "failed to create contact")
		return
	}
	c.IndentedJSON(http.StatusCreated, newContact)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56
func (s *Service) findContactByID(c *gin.Context) {
	contact, found := s.lookupContact(c)
	if !found {
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL, updates the values specified in the JSON (and only those), and finally responds with the
// new version of the contact.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone_number": "81970"}'
//	> curl http://localhost:8080/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"notes": "prefers email"}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	var submitted model.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if submitted.FirstName != nil && strings.TrimSpace(*submitted.FirstName) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "first name is required"})
		return
	}

	contact, err := s.contacts.Update(c.Request.Context(), id, submitted)
	switch {
	case errors.Is(err, store.ErrNothingToUpdate):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no values to be updated"})
	case errors.Is(err, store.ErrContactNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case err != nil:
		s.internalError(c, err, "failed to update contact")
	default:
		c.IndentedJSON(http.StatusOK, contact)
	}
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --request "DELETE"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	err := s.contacts.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrContactNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	case err != nil:
		s.internalError(c, err, "failed to delete contact")
	default:
		c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
	}
}

// lookupContact loads the contact named by the id parameter of the request URL. If that fails the
// response has been written already and found is false.
func (s *Service) lookupContact(c *gin.Context) (contact *model.Contact, found bool) {
	id, valid := parseID(c)
	if !valid {
		return nil, false
	}
	contact, err := s.contacts.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrContactNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return nil, false
	}
	if err != nil {
		s.internalError(c, err, "failed to fetch contact")
		return nil, false
	}
	return contact, true
}

// parseID reads the id parameter of the request URL. Anything but an integer is answered with
// BAD REQUEST before the database is involved.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// internalError logs the cause of a failed request and answers with a generic message, so that
// no internals leak to the client.
func (s *Service) internalError(c *gin.Context, err error, message string) {
	s.log.Error(message,
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": message})
}
