package model

import "time"

// Credentials holds the vendor API key pair and the outcome of the last
// validation. Region is the ID of the region that accepted the pair, or empty
// when the pair has never validated.
type Credentials struct {
	APIKey          string
	AppKey          string
	Region          string
	IsValid         bool
	LastValidatedAt time.Time
}

// IsEmpty returns true when neither key has been provided.
func (c Credentials) IsEmpty() bool {
	return c.APIKey == "" && c.AppKey == ""
}

// ValidationResult is the outcome of probing the region list with a key pair.
// Attempts counts the validation requests that were issued.
type ValidationResult struct {
	IsValid  bool   `json:"isValid"`
	Region   string `json:"region"`
	Attempts int    `json:"attempts"`
}
