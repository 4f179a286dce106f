package models

import (
	"testing"
)

func TestLeadCanTransitionTo(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{LEAD_STATUS_PENDING, LEAD_STATUS_PROCESSING, true},
		{LEAD_STATUS_PENDING, LEAD_STATUS_DUPLICATE, true},
		{LEAD_STATUS_PENDING, LEAD_STATUS_SOLD, false},
		{LEAD_STATUS_PROCESSING, LEAD_STATUS_SOLD, true},
		{LEAD_STATUS_PROCESSING, LEAD_STATUS_DELIVERY_FAILED, true},
		{LEAD_STATUS_PROCESSING, LEAD_STATUS_PENDING, false},
		{LEAD_STATUS_AUCTIONED, LEAD_STATUS_SOLD, true},
		{LEAD_STATUS_DELIVERY_FAILED, LEAD_STATUS_SOLD, true},
		{LEAD_STATUS_DELIVERY_FAILED, LEAD_STATUS_PROCESSING, false},
		{LEAD_STATUS_SOLD, LEAD_STATUS_PROCESSING, false},
		{LEAD_STATUS_FAILED, LEAD_STATUS_PROCESSING, false},
	}

	for _, tt := range tests {
		lead := &Lead{Status: tt.from}
		if got := lead.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestLeadValidate(t *testing.T) {
	valid := Lead{
		ServiceTypeID: 1,
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Phone:         "5551234567",
		ZipCode:       "90210",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid lead failed validation: %v", err)
	}

	bad := valid
	bad.ZipCode = "9021" // must be exactly five digits
	if err := bad.Validate(); err == nil {
		t.Fatal("four-digit zip should fail validation")
	}

	bad = valid
	bad.Email = "not-an-email"
	if err := bad.Validate(); err == nil {
		t.Fatal("malformed email should fail validation")
	}
}

func TestLeadComplianceHelpers(t *testing.T) {
	lead := &Lead{}
	if lead.HasTrustedForm() || lead.HasJornaya() {
		t.Fatal("bare lead should have no compliance artifacts")
	}

	lead.TrustedFormCertURL = "https://cert.trustedform.com/abc"
	if !lead.HasTrustedForm() {
		t.Fatal("certificate URL alone should count as TrustedForm")
	}

	lead.JornayaLeadID = "jid-1"
	if !lead.HasJornaya() {
		t.Fatal("jornaya id should count")
	}
}
