package mail

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

const signature = "Best regards,<br>The gradnext Team"

var contents = map[entity.EmailKind]content{
	entity.EmailConfirmation: {
		Intro:        "Thank you for your interest in our Consulting Cohort 101 program!",
		Instructions: "We're excited to have you join us. Please click the button below to confirm your spot and complete your payment.",
		ButtonColor:  "#22BC66",
		ButtonText:   "Confirm Your Spot & Pay",
		Outro:        []string{"If you have any questions, feel free to reply to this email. We're here to help!"},
	},
	entity.EmailReminder1: {
		Intro:        "We noticed you haven't opened our previous email about the Consulting Cohort 101 program.",
		Instructions: "Don't miss out on this opportunity! Click below to view the program details and secure your spot.",
		ButtonColor:  "#FF6B35",
		ButtonText:   "View Program Details",
		Outro:        []string{"Spots are filling up quickly. We'd hate for you to miss out!"},
	},
	entity.EmailReminder2: {
		Intro:        "We saw you opened our email about the Consulting Cohort 101 program, but you haven't clicked the payment link yet.",
		Instructions: "Here are some additional benefits of joining our program:",
		ButtonColor:  "#4A90E2",
		ButtonText:   "Complete Your Enrollment",
		Outro: []string{
			"🎯 Personalized career guidance",
			"💼 Real-world consulting projects",
			"🤝 Network with industry professionals",
			"📈 95% placement rate",
			"💰 Competitive pricing with flexible payment options",
		},
	},
	entity.EmailFinalReminder: {
		Intro:        "This is your final reminder about the Consulting Cohort 101 program.",
		Instructions: "You clicked the payment link but haven't completed the payment yet. This is your last chance to secure your spot!",
		ButtonColor:  "#E74C3C",
		ButtonText:   "Complete Payment Now",
		Outro:        []string{"If you're having trouble with the payment, please reply to this email and we'll help you resolve any issues."},
	},
}

const htmlLayout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{ subject | escape }}</title></head>
<body style="margin:0;padding:0;background:#F2F4F6;font-family:Helvetica,Arial,sans-serif;color:#51545E;">
<table width="100%" cellpadding="0" cellspacing="0" role="presentation">
<tr><td align="center" style="padding:25px 0;">
  <a href="{{ product.link }}"><img src="{{ product.logo }}" alt="{{ product.name | escape }}" height="50"></a>
</td></tr>
<tr><td align="center">
<table width="570" cellpadding="0" cellspacing="0" role="presentation" style="background:#FFFFFF;padding:35px;">
<tr><td>
  <h1 style="font-size:22px;color:#333333;">Hi {{ name | escape }},</h1>
  <p>{{ intro | escape }}</p>
  <p>{{ instructions | escape }}</p>
  <p style="text-align:center;padding:20px 0;">
    <a href="{{ button.link }}" style="background:{{ button.color }};color:#FFFFFF;padding:12px 24px;border-radius:3px;text-decoration:none;display:inline-block;">{{ button.text | escape }}</a>
  </p>
  {% for line in outro %}<p>{{ line | escape }}</p>
  {% endfor %}
  <p>{{ signature }}</p>
</td></tr>
</table>
</td></tr>
<tr><td align="center" style="padding:25px 0;font-size:12px;color:#A8AAAF;">
  &copy; {{ year }} <a href="{{ product.link }}" style="color:#A8AAAF;">{{ product.name | escape }}</a>. All rights reserved.
</td></tr>
</table>
</body>
</html>`

const textLayout = `Hi {{ name }},

{{ intro }}

{{ instructions }}

{{ button.text }}: {{ button.link }}
{% for line in outro %}
{{ line }}{% endfor %}

{{ signature_text }}

{{ product.name }} - {{ product.link }}
`

// TemplateRenderer turns an email request into HTML and plain text bodies.
type TemplateRenderer struct {
	from    string
	product Product
	year    int
	html    *liquid.Template
	text    *liquid.Template
}

func NewTemplateRenderer(from string, product Product, year int) (*TemplateRenderer, error) {
	engine := liquid.NewEngine()

	html, err := engine.ParseString(htmlLayout)
	if err != nil {
		return nil, fmt.Errorf("parse html layout: %w", err)
	}
	text, err := engine.ParseString(textLayout)
	if err != nil {
		return nil, fmt.Errorf("parse text layout: %w", err)
	}

	return &TemplateRenderer{
		from:    from,
		product: product,
		year:    year,
		html:    html,
		text:    text,
	}, nil
}

func (r *TemplateRenderer) Render(req entity.EmailRequest) (*Message, error) {
	c, ok := contents[req.Kind]
	if !ok {
		return nil, entity.ErrInvalidEmailKind
	}

	bindings := map[string]any{
		"subject":        req.Kind.Subject(),
		"name":           req.DisplayName,
		"intro":          c.Intro,
		"instructions":   c.Instructions,
		"outro":          c.Outro,
		"signature":      signature,
		"signature_text": "Best regards,\nThe gradnext Team",
		"year":           r.year,
		"button": map[string]any{
			"color": c.ButtonColor,
			"text":  c.ButtonText,
			"link":  r.product.PaymentLink,
		},
		"product": map[string]any{
			"name": r.product.Name,
			"link": r.product.Link,
			"logo": r.product.LogoURL,
		},
	}

	html, err := r.html.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render %s html: %w", req.Kind, err)
	}
	text, err := r.text.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render %s text: %w", req.Kind, err)
	}

	return &Message{
		From:    r.from,
		To:      req.To,
		Subject: req.Kind.Subject(),
		HTML:    html,
		Text:    text,
	}, nil
}
