// Package templates renders the HTML bodies of Signalist emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/aristath/signalist/internal/domain"
)

//go:embed files/*.html
var files embed.FS

// DigestDateLayout is the layout of the date shown in digest subjects and bodies
const DigestDateLayout = "Monday, January 2, 2006"

var funcs = template.FuncMap{
	"date": func(unix int64) string {
		return time.Unix(unix, 0).UTC().Format("Jan 2, 2006 15:04 UTC")
	},
}

var (
	welcomeTpl  = template.Must(template.New("welcome.html").ParseFS(files, "files/welcome.html"))
	digestTpl   = template.Must(template.New("digest.html").ParseFS(files, "files/digest.html"))
	newsListTpl = template.Must(template.New("news_list.html").Funcs(funcs).ParseFS(files, "files/news_list.html"))
)

// WelcomeData holds the values rendered into the welcome email
type WelcomeData struct {
	Name         string
	Intro        string
	DashboardURL string
}

// DigestData holds the values rendered into the daily digest email
type DigestData struct {
	Name    string
	Date    string
	Content template.HTML
}

// RenderWelcome renders the welcome email
func RenderWelcome(d WelcomeData) (string, error) {
	return execute(welcomeTpl, d)
}

// RenderDigest wraps summarized news content in the digest layout.
// Content is inserted as-is.
func RenderDigest(d DigestData) (string, error) {
	return execute(digestTpl, d)
}

// RenderNewsList renders articles as an HTML list, escaping every field
func RenderNewsList(articles []domain.MarketNewsArticle) (template.HTML, error) {
	out, err := execute(newsListTpl, articles)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

// DigestDate formats t the way digests show their date
func DigestDate(t time.Time) string {
	return t.UTC().Format(DigestDateLayout)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
