package mail

import (
	"bytes"
	"html/template"

	"zonewatch/internal/errors"
)

// Each template renders the full HTML body of one mail kind from the
// template context assembled by the usecases.
var templates = map[string]*template.Template{
	"user-key": template.Must(template.New("user-key").Parse(`
<p>Hi{{if .addressal}} {{.addressal}}{{end}},</p>
<p>Thanks for signing up for zoning alerts{{if .site}} from {{.site}}{{end}}.
Please confirm your subscription to start receiving updates:</p>
<p><a href="{{.confirm_url}}">Confirm my subscription</a></p>
{{if .confirm_qr_png}}<p><img alt="confirmation QR code" src="cid:confirm-qr"/></p>{{end}}
<p>You can review or change your alerts at any time from
<a href="{{.manage_url}}">your settings page</a>.</p>
`)),

	"resend-key": template.Must(template.New("resend-key").Parse(`
<p>Hi{{if .addressal}} {{.addressal}}{{end}},</p>
<p>You already have an alert set up for this area. Manage your existing
alerts here:</p>
<p><a href="{{.manage_url}}">Your alert settings</a></p>
`)),

	"deactivation": template.Must(template.New("deactivation").Parse(`
<p>Hi{{if .addressal}} {{.addressal}}{{end}},</p>
<p>Your account{{if .site}} on {{.site}}{{end}} has been deactivated and you
will no longer receive zoning alerts. If this was a mistake, sign up again
at any time.</p>
`)),

	"digest": template.Must(template.New("digest").Parse(`
<p>Hi{{if .addressal}} {{.addressal}}{{end}},</p>
<p>Here is what changed near you:</p>
<ul>
{{range .summary.Proposals}}
  <li><strong>{{.CaseNumber}}</strong> at {{.Address}}
  {{- if .IsNew}} (new proposal)
  {{- else}}{{range .Changes}} &mdash; {{.Field}}: {{if .From}}{{.From}} &rarr; {{end}}{{.To}}{{end}}
  {{- end}}
  {{- if .Link}} [<a href="{{.Link}}">details</a>]{{end}}</li>
{{end}}
</ul>
<p><a href="{{.manage_url}}">Manage your alerts</a> &middot;
<a href="{{.unsubscribe_url}}">Unsubscribe</a></p>
`)),

	"comment": template.Must(template.New("comment").Parse(`
<p>New comment{{if .site}} on {{.site}}{{end}}:</p>
<p><strong>Subject:</strong> {{.subject}}<br/>
<strong>From:</strong> {{.email}}{{if .remote}} ({{.remote}}){{end}}</p>
<blockquote>{{.body}}</blockquote>
`)),
}

// render produces the HTML body for the named template.
func render(name string, templateCtx map[string]any) (string, error) {
	tmpl, ok := templates[name]
	if !ok {
		return "", errors.Errorf("unknown mail template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateCtx); err != nil {
		return "", errors.Wrapf(err, "render mail template %q", name)
	}

	return buf.String(), nil
}
