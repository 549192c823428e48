package models

import "strings"

// Student is the subset of the externally managed student record the ledger
// reads. The finance service never writes students.
type Student struct {
	ID          string  `json:"id" bson:"_id"`
	AdmissionNo string  `json:"admissionNo" bson:"admissionNo"`
	FirstName   string  `json:"firstName" bson:"firstName"`
	LastName    string  `json:"lastName" bson:"lastName"`
	ClassID     *string `json:"classId,omitempty" bson:"classId,omitempty"`
	IsActive    bool    `json:"isActive" bson:"isActive"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
