package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
)

type NotificationEmail struct {
	RecipientName string
	Title         string
	Message       string
	ActionURL     string
	ActionText    string
}

type DigestItem struct {
	Category  string
	Title     string
	Message   string
	CreatedAt time.Time
	ActionURL string
}

type DigestSection struct {
	Category string
	Items    []DigestItem
}

type DigestEmail struct {
	RecipientName string
	DigestType    string
	Sections      []DigestSection
}

const layoutTmpl = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f3f4f6; margin: 0; padding: 24px;">
    <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; padding: 24px;">
        <h1 style="color: #2563eb; font-size: 20px; margin: 0 0 16px 0;">{{.Brand.AppName}}</h1>
        {{template "content" .}}
        <hr style="border: 1px solid #eee; margin: 24px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated message from <a href="{{.Brand.AppURL}}" style="color: #666;">{{.Brand.AppName}}</a>.{{if .Brand.SupportEmail}} Questions? Contact {{.Brand.SupportEmail}}.{{end}}</p>
    </div>
</body>
</html>{{end}}`

const notificationTmpl = `{{define "content"}}
        <p>Hi {{.Data.RecipientName}},</p>
        <h2 style="font-size: 18px; margin: 0 0 8px 0;">{{.Data.Title}}</h2>
        <p style="white-space: pre-wrap;">{{.Data.Message}}</p>
        {{if .Data.ActionURL}}<div style="margin: 30px 0;">
            <a href="{{.Data.ActionURL}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">{{.Data.ActionText}}</a>
        </div>{{end}}
{{end}}`

const digestTmpl = `{{define "content"}}
        <p>Hi {{.Data.RecipientName}},</p>
        <p>Here is your {{.Data.DigestType}} summary of unread notifications.</p>
        {{range .Data.Sections}}<div class="digest-section" data-category="{{.Category}}" style="margin: 0 0 24px 0;">
            <h2 style="font-size: 16px; color: #111827; border-bottom: 1px solid #e5e7eb; padding-bottom: 4px;">{{categoryTitle .Category}} ({{len .Items}})</h2>
            {{range .Items}}<div class="digest-item" style="margin: 0 0 12px 0;">
                <p style="margin: 0; font-weight: 600;">{{.Title}}</p>
                <p style="margin: 0;">{{.Message}}</p>
                <p style="margin: 0; font-size: 12px; color: #6b7280;">{{formatDate .CreatedAt}}{{if .ActionURL}} &middot; <a href="{{.ActionURL}}" style="color: #2563eb;">View</a>{{end}}</p>
            </div>{{end}}
        </div>{{end}}
        <div style="margin: 30px 0;">
            <a href="{{.Brand.AppURL}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Open {{.Brand.AppName}}</a>
        </div>
{{end}}`

var funcs = template.FuncMap{
	"formatDate":    func(t time.Time) string { return t.Format("Jan 2, 2006 15:04") },
	"categoryTitle": categoryTitle,
}

var (
	notificationTemplate = template.Must(template.Must(template.New("notification").Funcs(funcs).Parse(layoutTmpl)).Parse(notificationTmpl))
	digestTemplate       = template.Must(template.Must(template.New("digest").Funcs(funcs).Parse(layoutTmpl)).Parse(digestTmpl))
)

type view struct {
	Subject string
	Brand   Branding
	Data    any
}

// RenderNotification returns the subject and HTML body for a single notification.
func RenderNotification(brand Branding, data NotificationEmail) (string, string, error) {
	if data.RecipientName == "" {
		data.RecipientName = "there"
	}
	if data.ActionText == "" {
		data.ActionText = "View details"
	}
	subject := data.Title
	body, err := render(notificationTemplate, view{Subject: subject, Brand: brand, Data: data})
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// RenderDigest returns the subject and HTML body for a digest with one section per category.
func RenderDigest(brand Branding, data DigestEmail) (string, string, error) {
	if data.RecipientName == "" {
		data.RecipientName = "there"
	}
	total := 0
	for _, s := range data.Sections {
		total += len(s.Items)
	}
	subject := fmt.Sprintf("Your %s %s digest: %d unread notification%s", brand.AppName, data.DigestType, total, plural(total))
	body, err := render(digestTemplate, view{Subject: subject, Brand: brand, Data: data})
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// BuildDigestSections groups items by category. Sections are sorted by category,
// items keep their input order.
func BuildDigestSections(items []DigestItem) []DigestSection {
	index := make(map[string]int)
	var sections []DigestSection
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(sections)
			index[item.Category] = i
			sections = append(sections, DigestSection{Category: item.Category})
		}
		sections[i].Items = append(sections[i].Items, item)
	}
	sort.SliceStable(sections, func(a, b int) bool {
		return sections[a].Category < sections[b].Category
	})
	return sections
}

func render(t *template.Template, v view) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", fmt.Errorf("error rendering html, %w", err)
	}
	return buf.String(), nil
}

func categoryTitle(category string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(category), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
