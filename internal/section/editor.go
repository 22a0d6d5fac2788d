package section

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"local.dev/portfolio-backend/internal/models"
)

// 編輯操作
const (
	OpSet    = "set"
	OpAdd    = "add"
	OpRemove = "remove"
	OpMove   = "move"
)

// EditOp 是編輯畫面送來的一個操作。Path 用 "/" 分隔，例如：
//
//	name                     profile 的欄位（set）
//	lists                    整個清單陣列（add / remove / move）
//	lists/0/title            第 0 個清單的標題（set）
//	lists/0/items            第 0 個清單的項目（add / remove / move）
//	histories/2/details/1    第 2 筆年表的第 1 行（set）
type EditOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Index *int            `json:"index,omitempty"` // add：插入位置（省略 = 最後）；remove / move：來源
	To    *int            `json:"to,omitempty"`    // move：目的位置
	Value json.RawMessage `json:"value,omitempty"`
}

// Apply 依序套用 ops，回傳新的 Data；任何一個失敗都不會改到 d
func Apply(d Data, ops []EditOp) (Data, error) {
	cur := clone(d)
	for i, op := range ops {
		next, err := applyOne(cur, op)
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("ops[%d]", i), err.Error())
		}
		cur = next
	}
	return normalize(cur), nil
}

func clone(d Data) Data {
	b, _ := json.Marshal(d)
	out, err := DecodeJSON(d.Type(), b)
	if err != nil {
		return d
	}
	return out
}

func applyOne(d Data, op EditOp) (Data, error) {
	path := strings.Split(strings.Trim(op.Path, "/"), "/")
	switch v := d.(type) {
	case ProfileData:
		return applyProfile(v, path, op)
	case CategorizedData:
		groups, err := applyGroups(v.Items, "items", "title", "items", path, op)
		v.Items = groups
		return v, err
	case ListData:
		groups, err := applyGroups(v.Lists, "lists", "title", "items", path, op)
		v.Lists = groups
		return v, err
	case HistoryData:
		groups, err := applyGroups(v.Histories, "histories", "date", "details", path, op)
		v.Histories = groups
		return v, err
	}
	return nil, fmt.Errorf("unsupported data %T", d)
}

func applyProfile(p ProfileData, path []string, op EditOp) (Data, error) {
	if op.Op != OpSet || len(path) != 1 {
		return nil, fmt.Errorf("profile は set のみ対応しています")
	}
	s, err := stringValue(op.Value)
	if err != nil {
		return nil, err
	}
	switch path[0] {
	case "name":
		p.Name = s
	case "hometown":
		p.Hometown = s
	case "hobbies":
		p.Hobbies = s
	case "university":
		p.University = s
	case "profileImage":
		p.ProfileImage = s
	default:
		return nil, fmt.Errorf("不明なフィールドです: %s", path[0])
	}
	return p, nil
}

// group 是「標籤 + 字串陣列」：清單、分類、年表共用
type group interface {
	CategoryGroup | TitledList | HistoryEntry
}

func groupParts[G group](g *G) (label *string, entries *[]string) {
	switch v := any(g).(type) {
	case *CategoryGroup:
		return &v.Title, &v.Items
	case *TitledList:
		return &v.Title, &v.Items
	case *HistoryEntry:
		return &v.Date, &v.Details
	}
	panic("unreachable")
}

func applyGroups[G group](groups []G, coll, labelName, entriesName string, path []string, op EditOp) ([]G, error) {
	if path[0] != coll {
		return groups, fmt.Errorf("不明なパスです: %s", op.Path)
	}
	if len(path) == 1 {
		switch op.Op {
		case OpAdd:
			var g G
			if err := json.Unmarshal(op.Value, &g); err != nil {
				return groups, fmt.Errorf("value: %v", err)
			}
			return insertAt(groups, op.Index, g)
		case OpRemove:
			return removeAt(groups, op.Index)
		case OpMove:
			return moveItem(groups, op.Index, op.To)
		}
		return groups, fmt.Errorf("%s に %s はできません", op.Path, op.Op)
	}

	i, err := strconv.Atoi(path[1])
	if err != nil || i < 0 || i >= len(groups) {
		return groups, fmt.Errorf("インデックスが範囲外です: %s", op.Path)
	}
	if len(path) < 3 {
		return groups, fmt.Errorf("不明なパスです: %s", op.Path)
	}
	out := append([]G(nil), groups...)
	label, entries := groupParts(&out[i])

	switch {
	case path[2] == labelName && len(path) == 3:
		if op.Op != OpSet {
			return groups, fmt.Errorf("%s に %s はできません", op.Path, op.Op)
		}
		s, err := stringValue(op.Value)
		if err != nil {
			return groups, err
		}
		*label = s

	case path[2] == entriesName && len(path) == 3:
		var next []string
		switch op.Op {
		case OpAdd:
			s, err := stringValue(op.Value)
			if err != nil {
				return groups, err
			}
			next, err = insertAt(*entries, op.Index, s)
			if err != nil {
				return groups, err
			}
		case OpRemove:
			if next, err = removeAt(*entries, op.Index); err != nil {
				return groups, err
			}
		case OpMove:
			if next, err = moveItem(*entries, op.Index, op.To); err != nil {
				return groups, err
			}
		default:
			return groups, fmt.Errorf("%s に %s はできません", op.Path, op.Op)
		}
		*entries = next

	case path[2] == entriesName && len(path) == 4:
		j, err := strconv.Atoi(path[3])
		if err != nil || j < 0 || j >= len(*entries) {
			return groups, fmt.Errorf("インデックスが範囲外です: %s", op.Path)
		}
		if op.Op != OpSet {
			return groups, fmt.Errorf("%s に %s はできません", op.Path, op.Op)
		}
		s, err := stringValue(op.Value)
		if err != nil {
			return groups, err
		}
		next := append([]string(nil), *entries...)
		next[j] = s
		*entries = next

	default:
		return groups, fmt.Errorf("不明なパスです: %s", op.Path)
	}
	return out, nil
}

func stringValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("value は文字列である必要があります")
	}
	return s, nil
}

// ===== slice helpers（都回傳新的 slice，不改原本的）=====

func insertAt[T any](s []T, idx *int, v T) ([]T, error) {
	i := len(s)
	if idx != nil {
		i = *idx
	}
	if i < 0 || i > len(s) {
		return s, fmt.Errorf("インデックスが範囲外です: %d", i)
	}
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...), nil
}

func removeAt[T any](s []T, idx *int) ([]T, error) {
	if idx == nil || *idx < 0 || *idx >= len(s) {
		return s, fmt.Errorf("削除するインデックスが不正です")
	}
	i := *idx
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), nil
}

func moveItem[T any](s []T, from, to *int) ([]T, error) {
	if from == nil || to == nil || *from < 0 || *from >= len(s) || *to < 0 || *to >= len(s) {
		return s, fmt.Errorf("移動するインデックスが不正です")
	}
	v := s[*from]
	out, _ := removeAt(s, from)
	return insertAt(out, to, v)
}
