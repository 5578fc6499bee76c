package models

import "time"

// UserRole enumerates the two account roles. It is a closed set; any other
// value is rejected at registration.
type UserRole string

const (
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleLearner    UserRole = "LEARNER"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	return r == RoleInstructor || r == RoleLearner
}

// User represents an account of either role.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	LicenseBlobKey *string   `db:"license_blob_key" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorProfile carries per-instructor booking settings.
type InstructorProfile struct {
	UserID             string    `db:"user_id" json:"user_id"`
	BookingLeadingTime int       `db:"booking_leading_time" json:"booking_leading_time"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// LearnerProfile stores the learner's provisional license details.
type LearnerProfile struct {
	UserID        string    `db:"user_id" json:"user_id"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	LicenseExpiry time.Time `db:"license_expiry" json:"license_expiry"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorSummary is the learner-facing roster entry.
type InstructorSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// InstructorDetail is the learner-facing instructor page payload.
type InstructorDetail struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	BookingLeadingTime int                  `json:"booking_leading_time"`
	Availabilities     []AvailabilityWindow `json:"availabilities"`
}
