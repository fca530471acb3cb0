package model

import "time"

// Contact is the data structure for a person that we know.
// All fields with the exception of the Id field are optional in the JSON representation. The
// first name is required for a contact to be stored.
type Contact struct {
	Id              int64      `json:"id"                          db:"id"`
	Uid             *string    `json:"uid,omitempty"               db:"uid"`
	FirstName       *string    `json:"first_name,omitempty"        db:"first_name"`
	LastName        *string    `json:"last_name,omitempty"         db:"last_name"`
	PhoneNumber     *string    `json:"phone_number,omitempty"      db:"phone_number"`
	Email           *string    `json:"email,omitempty"             db:"email"`
	Company         *string    `json:"company,omitempty"           db:"company"`
	JobTitle        *string    `json:"job_title,omitempty"         db:"job_title"`
	Notes           *string    `json:"notes,omitempty"             db:"notes"`
	ProfileImageUrl *string    `json:"profile_image_url,omitempty" db:"profile_image_url"`
	CreatedAt       *time.Time `json:"created_at,omitempty"        db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"        db:"updated_at"`
}

// Value returns the string behind p, or the empty string if p is nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
