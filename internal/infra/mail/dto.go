package mail

// Product is the branding shared by every template.
type Product struct {
	Name        string
	Link        string
	LogoURL     string
	PaymentLink string
}

// content is the per-kind copy placed into the layout.
type content struct {
	Intro        string
	Instructions string
	ButtonColor  string
	ButtonText   string
	Outro        []string
}

// Message is a rendered email ready for a transport.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}
