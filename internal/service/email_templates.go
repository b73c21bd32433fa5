package service

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type registrationEmailData struct {
	Username        string
	VerificationURL string
}

var registrationText = texttemplate.Must(texttemplate.New("registration.txt").Parse(
	`Hi {{.Username}},

Thanks for signing up. Please verify your account using this link:

{{.VerificationURL}}

The link expires shortly. If you did not create an account you can ignore this email.
`))

var registrationHTML = htmltemplate.Must(htmltemplate.New("registration.html").Parse(
	`<p>Hi {{.Username}},</p>
<p>Thanks for signing up. Please verify your account using the link below.</p>
<p><a href="{{.VerificationURL}}">Verify my account</a></p>
<p>The link expires shortly. If you did not create an account you can ignore this email.</p>
`))

func renderRegistrationEmail(data registrationEmailData) (string, string, error) {
	var text, html bytes.Buffer
	if err := registrationText.Execute(&text, data); err != nil {
		return "", "", err
	}
	if err := registrationHTML.Execute(&html, data); err != nil {
		return "", "", err
	}
	return text.String(), html.String(), nil
}
