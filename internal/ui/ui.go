package ui

import (
	"bytes"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/pkg/types"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"
)

type UI struct {
	log    *slog.Logger
	tpl    *template.Template
	chat   *chat.Controller
	md     goldmark.Markdown
	policy *bluemonday.Policy
	loc    *time.Location
}

// New parses the templates found in fsys (layout + partials).
func New(log *slog.Logger, c *chat.Controller, fsys fs.FS) (*UI, error) {
	t, err := template.New("root").ParseFS(fsys, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, err
	}

	// URLs become links and single newlines become <br>.
	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithUnsafe(), gmhtml.WithHardWraps()),
		goldmark.WithExtensions(
			extension.Linkify,
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					chromahtml.WithLineNumbers(false),
				),
			),
		),
	)

	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("code", "pre", "span")
	p.AllowAttrs("style").OnElements("span", "pre") // inline styles from the highlighter
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &UI{
		log:    log,
		tpl:    t,
		chat:   c,
		md:     md,
		policy: p,
		loc:    time.Local,
	}, nil
}

type MsgView struct {
	Sender  string
	HTML    template.HTML
	Latency int64
	At      string
}

type ErrorView struct {
	Title   string
	Summary string
	Detail  string
}

func (u *UI) view(m types.Message) MsgView {
	return MsgView{Sender: string(m.Sender), HTML: u.mdHTML(m.Text), At: m.Timestamp.In(u.loc).Format("15:04")}
}

func (u *UI) mdHTML(src string) template.HTML {
	var buf bytes.Buffer
	if err := u.md.Convert([]byte(src), &buf); err != nil {
		u.log.Warn("markdown convert", "err", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(u.policy.SanitizeBytes(buf.Bytes()))
}

func (u *UI) render(w http.ResponseWriter, name string, data any, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := u.tpl.ExecuteTemplate(w, name, data); err != nil {
		u.errTpl(w, err)
	}
}

func (u *UI) errTpl(w http.ResponseWriter, err error) {
	u.log.Error("template execute", "err", err)
	_, _ = w.Write([]byte("<pre>template error: " + template.HTMLEscapeString(err.Error()) + "</pre>"))
}
