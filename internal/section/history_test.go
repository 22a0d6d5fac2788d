package section

import "testing"

func TestDateKey(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2021年4月", 202104},
		{"2021年12月", 202112},
		{"2019年04月入学", 201904},
		{"令和3年", 0},
		{"2021/04", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := DateKey(tt.in); got != tt.want {
			t.Errorf("DateKey(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func dates(h []HistoryEntry) []string {
	out := make([]string, len(h))
	for i, e := range h {
		out[i] = e.Date + "|" + firstDetail(e)
	}
	return out
}

func firstDetail(e HistoryEntry) string {
	if len(e.Details) == 0 {
		return ""
	}
	return e.Details[0]
}

func TestSortHistories(t *testing.T) {
	input := func() []HistoryEntry {
		return []HistoryEntry{
			{Date: "2022年4月", Details: []string{"a"}},
			{Date: "不明", Details: []string{"b"}},
			{Date: "2019年4月", Details: []string{"c"}},
			{Date: "2022年4月", Details: []string{"d"}},
			{Date: "2020年10月", Details: []string{"e"}},
		}
	}

	tests := []struct {
		order string
		want  []string
	}{
		{SortAsc, []string{"不明|b", "2019年4月|c", "2020年10月|e", "2022年4月|a", "2022年4月|d"}},
		{"", []string{"不明|b", "2019年4月|c", "2020年10月|e", "2022年4月|a", "2022年4月|d"}},
		{SortDesc, []string{"2022年4月|a", "2022年4月|d", "2020年10月|e", "2019年4月|c", "不明|b"}},
	}
	for _, tt := range tests {
		h := input()
		SortHistories(h, tt.order)
		got := dates(h)
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("order %q: got %v, want %v", tt.order, got, tt.want)
				break
			}
		}
	}
}
