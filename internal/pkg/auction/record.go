package auction

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
)

// LeadRecord flattens a lead into the document the mapping engine traverses.
// Service-specific form answers sit under "service", compliance artifacts
// under "compliance".
func LeadRecord(lead *models.Lead) map[string]interface{} {
	record := map[string]interface{}{
		"lead_id":    lead.UUID,
		"first_name": lead.FirstName,
		"last_name":  lead.LastName,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"zip_code":   lead.ZipCode,
		"created_at": lead.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	serviceFields := map[string]interface{}{}
	if len(lead.ServiceFields) > 0 {
		if err := json.Unmarshal([]byte(lead.ServiceFields), &serviceFields); err != nil {
			log.Warnf("[Auction] Lead %s has malformed service fields: %v", lead.UUID, err)
			serviceFields = map[string]interface{}{}
		}
	}
	record["service"] = serviceFields

	compliance := map[string]interface{}{
		"tcpa_consent": lead.TCPAConsent,
	}
	if lead.TrustedFormCertID != "" {
		compliance["trusted_form_cert_id"] = lead.TrustedFormCertID
	}
	if lead.TrustedFormCertURL != "" {
		compliance["trusted_form_cert_url"] = lead.TrustedFormCertURL
	}
	if lead.JornayaLeadID != "" {
		compliance["jornaya_lead_id"] = lead.JornayaLeadID
	}
	if lead.TCPAConsentIP != "" {
		compliance["tcpa_consent_ip"] = lead.TCPAConsentIP
	}
	if lead.TCPAConsentAt != nil {
		compliance["tcpa_consent_at"] = lead.TCPAConsentAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	record["compliance"] = compliance

	return record
}
