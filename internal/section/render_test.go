package section

import (
	"strings"
	"testing"

	"local.dev/portfolio-backend/internal/models"
)

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		sec     Section
		want    []string
		notWant []string
	}{
		{
			name: "profile omits empty fields",
			sec: Section{ID: "profile", Meta: models.SectionMeta{DisplayName: "プロフィール"},
				Data: ProfileData{Name: "山田太郎", Hobbies: "登山"}},
			want:    []string{"<h2>プロフィール</h2>", "<dd>山田太郎</dd>", "<dd>登山</dd>"},
			notWant: []string{"出身", "<img"},
		},
		{
			name: "list escapes html",
			sec: Section{ID: "skills", Meta: models.SectionMeta{DisplayName: "スキル"},
				Data: ListData{Lists: []TitledList{{Title: "言語", Items: []string{"<script>"}}}}},
			want:    []string{"<h3>言語</h3>", "&lt;script&gt;"},
			notWant: []string{"<script>"},
		},
		{
			name: "categorized",
			sec: Section{ID: "tools", Meta: models.SectionMeta{DisplayName: "ツール"},
				Data: CategorizedData{Items: []CategoryGroup{{Title: "Web", Items: []string{"React"}}, {Title: "空"}}}},
			want:    []string{"<h3>Web</h3>", "<li>React</li>", "<h3>空</h3>"},
			notWant: []string{"<ul></ul>"},
		},
		{
			name: "history",
			sec: Section{ID: "history", Meta: models.SectionMeta{DisplayName: "経歴"},
				Data: HistoryData{Histories: []HistoryEntry{{Date: "2020年4月", Details: []string{"入学"}}}}},
			want: []string{"<time>2020年4月</time>", "<li>入学</li>"},
		},
		{
			name: "empty skeleton renders heading only",
			sec:  Section{ID: "empty", Meta: models.SectionMeta{DisplayName: "空"}, Data: Skeleton(TypeList)},
			want: []string{"<h2>空</h2>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.RenderString(tt.sec)
			if err != nil {
				t.Fatalf("Render error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("output should not contain %q:\n%s", nw, out)
				}
			}
		})
	}
}

func TestRenderer_NilData(t *testing.T) {
	r, _ := NewRenderer()
	if _, err := r.RenderString(Section{ID: "x"}); err == nil {
		t.Error("expected error for nil data")
	}
}
