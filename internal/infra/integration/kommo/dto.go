package kommo

// CreateLeadInput describes one deal pushed to the CRM.
type CreateLeadInput struct {
	Name  string
	Email string
	Phone string
	Tags  []string
}

type embeddedIDs struct {
	Embedded struct {
		Leads []struct {
			ID int `json:"id"`
		} `json:"leads"`
		Contacts []struct {
			ID int `json:"id"`
		} `json:"contacts"`
	} `json:"_embedded"`
}
