package section

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

// 每種區塊一個 template；缺少的欄位用 with / range 略過，不會出錯
const sectionTemplates = `
{{define "profile"}}<section class="section section-profile" id="{{.ID}}">
<h2>{{.Meta.DisplayName}}</h2>
{{with .Data}}{{with .ProfileImage}}<img class="profile-image" src="{{.}}" alt="">
{{end}}<dl>
{{with .Name}}<dt>名前</dt><dd>{{.}}</dd>
{{end}}{{with .Hometown}}<dt>出身</dt><dd>{{.}}</dd>
{{end}}{{with .University}}<dt>所属</dt><dd>{{.}}</dd>
{{end}}{{with .Hobbies}}<dt>趣味</dt><dd>{{.}}</dd>
{{end}}</dl>{{end}}
</section>{{end}}

{{define "categorized"}}<section class="section section-categorized" id="{{.ID}}">
<h2>{{.Meta.DisplayName}}</h2>
{{range .Data.Items}}<div class="category">
<h3>{{.Title}}</h3>
{{with .Items}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>
{{end}}</section>{{end}}

{{define "list"}}<section class="section section-list" id="{{.ID}}">
<h2>{{.Meta.DisplayName}}</h2>
{{range .Data.Lists}}<div class="list">
{{with .Title}}<h3>{{.}}</h3>{{end}}
{{with .Items}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>
{{end}}</section>{{end}}

{{define "history"}}<section class="section section-history" id="{{.ID}}">
<h2>{{.Meta.DisplayName}}</h2>
<ol class="timeline">
{{range .Data.Histories}}<li><time>{{.Date}}</time>{{with .Details}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}</li>
{{end}}</ol>
</section>{{end}}
`

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("sections").Parse(sectionTemplates)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render 依 data 的種類選 template，輸出 HTML 片段
func (r *Renderer) Render(w io.Writer, s Section) error {
	var name string
	switch s.Data.(type) {
	case ProfileData:
		name = "profile"
	case CategorizedData:
		name = "categorized"
	case ListData:
		name = "list"
	case HistoryData:
		name = "history"
	default:
		return fmt.Errorf("section %s: no renderer for %T", s.ID, s.Data)
	}
	return r.tmpl.ExecuteTemplate(w, name, s)
}

func (r *Renderer) RenderString(s Section) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
