package models

import "time"

// Student roles as stored on the profile document and mirrored into
// Firebase custom claims.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Student is the profile document (students/{uid}). The document ID is the
// Firebase Auth UID. Credentials live in Firebase only; nothing
// password-shaped is ever mirrored here.
type Student struct {
	UID         string    `firestore:"-" json:"uid"`
	Name        string    `firestore:"name" json:"name"`
	Email       string    `firestore:"email" json:"email"`
	ParentEmail string    `firestore:"parentEmail,omitempty" json:"parentEmail,omitempty"`
	BatchID     string    `firestore:"batchId,omitempty" json:"batchId,omitempty"`
	Role        string    `firestore:"role,omitempty" json:"role,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}
