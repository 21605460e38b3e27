package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type Invitation struct {
	To          string
	ProjectName string
	InviterName string
	Permissions []string
	AcceptURL   string
}

var invitationTemplate = template.Must(template.New("invitation").Funcs(template.FuncMap{"join": join}).Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #0f172a;">
    <h2>You have been invited to {{.ProjectName}}</h2>
    <p>{{.InviterName}} invited you to collaborate on <strong>{{.ProjectName}}</strong>.</p>
    {{if .Permissions}}<p>Access: {{join .Permissions}}</p>{{end}}
    <p><a href="{{.AcceptURL}}" style="background: #2563eb; color: #fff; padding: 10px 16px; border-radius: 6px; text-decoration: none;">Accept invitation</a></p>
    <p style="color: #64748b; font-size: 12px;">If you were not expecting this invitation you can ignore this email.</p>
  </body>
</html>
`))

func join(items []string) string {
	return strings.Join(items, ", ")
}

// InvitationMessage renders the guest invitation email.
func InvitationMessage(inv Invitation) Message {
	subject := fmt.Sprintf("%s invited you to %s", inv.InviterName, inv.ProjectName)
	text := fmt.Sprintf("%s invited you to collaborate on %s.\n\nAccept the invitation: %s\n", inv.InviterName, inv.ProjectName, inv.AcceptURL)

	var html bytes.Buffer
	if err := invitationTemplate.Execute(&html, inv); err != nil {
		html.Reset()
		html.WriteString("<p>" + template.HTMLEscapeString(text) + "</p>")
	}

	return Message{
		To:      []string{inv.To},
		Subject: subject,
		HTML:    html.String(),
		Text:    text,
	}
}
