package section

import (
	"regexp"
	"sort"
	"strconv"
)

var historyDate = regexp.MustCompile(`(\d{4})年(\d{1,2})月`)

// DateKey 把 "2021年4月" 之類的字串轉成 202104；不符合格式就是 0
func DateKey(s string) int {
	m := historyDate.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return year*100 + month
}

// SortHistories 依 DateKey 穩定排序；相同 key 維持原本順序。
// order 不是 desc 時一律升冪，所以 key 為 0 的項目排最前面。
func SortHistories(h []HistoryEntry, order string) {
	desc := order == SortDesc
	sort.SliceStable(h, func(i, j int) bool {
		ki, kj := DateKey(h[i].Date), DateKey(h[j].Date)
		if desc {
			return ki > kj
		}
		return ki < kj
	})
}
