package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// TemplateData carries optional per-email values into a template.
type TemplateData struct {
	Reason       string
	Role         string
	TempPassword string
}

const defaultLogoURL = "https://main.d2xilxp1mil40w.amplifyapp.com/logo-transparent.png"

const baseLayout = `<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .email-container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { text-align: center; margin-bottom: 20px; }
    .logo { max-width: 150px; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    .button { display: inline-block; background-color: #0066cc; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px; }
  </style>
</head>
<body>
  <div class="email-container">
    <div class="header">
      <img src="{{.LogoURL}}" alt="MC3 Technologies Logo" class="logo" />
      <h2>MC3 GRC Platform</h2>
    </div>
    <div class="content">
      {{template "content" .}}
    </div>
    <div class="footer">
      <p>This is an automated message from the MC3 GRC Platform. Please do not reply to this email.</p>
      <p>&copy; {{.Year}} MC3. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`

var contentTemplates = map[string]string{
	"approval": `{{define "content"}}
    <h3>Welcome to MC3 GRC Platform!</h3>
    <p>Dear User,</p>
    <p>We're pleased to inform you that your account has been approved. You now have access to the MC3 GRC platform.</p>
    <p><strong>Next steps:</strong></p>
    <ol>
      <li>Log in to your account using your registered email address</li>
      <li>Set up your profile and preferences</li>
      <li>Explore the platform features</li>
    </ol>
    <p>If you need any assistance, please contact our support team.</p>
    <p>Thank you for choosing MC3 GRC Platform!</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
	"rejection": `{{define "content"}}
    <h3>Account Application Status</h3>
    <p>Dear User,</p>
    <p>Thank you for your interest in the MC3 GRC Platform.</p>
    <p>After reviewing your application, we regret to inform you that we are unable to approve your account at this time.</p>
    {{if .Reason}}<p><strong>Reason:</strong> {{.Reason}}</p>{{end}}
    <p>If you believe this decision was made in error or if you have additional information that might support your application, please contact our support team.</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
	"suspension": `{{define "content"}}
    <h3>Account Suspension Notice</h3>
    <p>Dear User,</p>
    <p>We're writing to inform you that your account on the MC3 GRC Platform has been temporarily suspended.</p>
    {{if .Reason}}<p><strong>Reason for suspension:</strong> {{.Reason}}</p>{{end}}
    <p>During this suspension period, you will not be able to access your account or use any of the platform services.</p>
    <p>If you have any questions about this suspension or would like to discuss reactivating your account, please contact our support team.</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
	"reactivation": `{{define "content"}}
    <h3>Your Account Has Been Reactivated</h3>
    <p>Dear User,</p>
    <p>Great news! Your account on the MC3 GRC Platform has been successfully reactivated.</p>
    <p>You can now log in to your account and resume using all the platform features and services.</p>
    <p><strong>Next steps:</strong></p>
    <ol>
      <li>Log in to your account using your registered email address</li>
      <li>Review your profile and preferences</li>
      <li>Resume your activities on the platform</li>
    </ol>
    <p>If you need any assistance or have any questions, please don't hesitate to contact our support team.</p>
    <p>Welcome back to MC3 GRC Platform!</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
	"welcome": `{{define "content"}}
    <h3>Your Account Has Been Created</h3>
    <p>Dear User,</p>
    <p>Your account has been created with role: <strong>{{.Role}}</strong>. Please contact your administrator for next steps.</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
	"passwordReset": `{{define "content"}}
    <h3>Password Reset</h3>
    <p>Dear User,</p>
    <p>An administrator has reset the password on your MC3 GRC Platform account.</p>
    <p>Your temporary password is: <strong>{{.TempPassword}}</strong></p>
    <p>You will be asked to choose a new password the next time you log in.</p>
    <p>If you did not expect this change, please contact our support team immediately.</p>
    <p>Best regards,<br>The MC3 Admin Team</p>
{{end}}`,
}

// Renderer produces the HTML bodies sent by the notification service.
type Renderer struct {
	logoURL   string
	templates map[string]*template.Template
}

// NewRenderer parses every template up front so rendering cannot fail at
// send time with a parse error.
func NewRenderer(logoURL string) (*Renderer, error) {
	if logoURL == "" {
		logoURL = defaultLogoURL
	}
	parsed := make(map[string]*template.Template, len(contentTemplates))
	for name, body := range contentTemplates {
		t, err := template.New(name).Parse(baseLayout)
		if err != nil {
			return nil, fmt.Errorf("parse base layout for %s: %w", name, err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		parsed[name] = t
	}
	return &Renderer{logoURL: logoURL, templates: parsed}, nil
}

func (r *Renderer) render(name string, data TemplateData) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf strings.Builder
	err := t.Execute(&buf, struct {
		TemplateData
		LogoURL string
		Year    int
	}{TemplateData: data, LogoURL: r.logoURL, Year: time.Now().Year()})
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.String(), nil
}

// Approval renders the account-approved email body.
func (r *Renderer) Approval() (string, error) { return r.render("approval", TemplateData{}) }

// Rejection renders the application-rejected body, including the reason
// paragraph only when one was given.
func (r *Renderer) Rejection(reason string) (string, error) {
	return r.render("rejection", TemplateData{Reason: reason})
}

// Suspension renders the account-suspended body.
func (r *Renderer) Suspension(reason string) (string, error) {
	return r.render("suspension", TemplateData{Reason: reason})
}

// Reactivation renders the account-reactivated body.
func (r *Renderer) Reactivation() (string, error) { return r.render("reactivation", TemplateData{}) }

// Welcome renders the account-created body for admin-created users.
func (r *Renderer) Welcome(role string) (string, error) {
	return r.render("welcome", TemplateData{Role: role})
}

// PasswordReset renders the temporary-password body.
func (r *Renderer) PasswordReset(tempPassword string) (string, error) {
	return r.render("passwordReset", TemplateData{TempPassword: tempPassword})
}
