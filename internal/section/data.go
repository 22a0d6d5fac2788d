// Package section 是可由管理畫面編輯的內容區塊。
//
// 每個區塊分成兩份文件：sectionMeta/{id}（顯示名稱、種類、順序）與 sections/{id}（內容）。
// 內容的形狀由 meta.type 決定，程式內用 Data 的四種實作表示。
package section

import (
	"encoding/json"
	"fmt"

	"local.dev/portfolio-backend/internal/models"
)

type Type string

const (
	TypeProfile     Type = "profile"
	TypeCategorized Type = "categorized"
	TypeList        Type = "list"
	TypeHistory     Type = "history"
)

// 年表的排序方向
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeProfile, TypeCategorized, TypeList, TypeHistory:
		return t, nil
	}
	return "", models.NewValidationError("type", fmt.Sprintf("不明な種類です: %q", s))
}

// Data 只有本 package 內的四種實作
type Data interface {
	Type() Type
}

type ProfileData struct {
	Name         string `json:"name,omitempty"`
	Hometown     string `json:"hometown,omitempty"`
	Hobbies      string `json:"hobbies,omitempty"`
	University   string `json:"university,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type CategoryGroup struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type CategorizedData struct {
	Items []CategoryGroup `json:"items"`
}

type TitledList struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type ListData struct {
	Lists []TitledList `json:"lists"`
}

type HistoryEntry struct {
	Date    string   `json:"date"`
	Details []string `json:"details"`
}

type HistoryData struct {
	Histories []HistoryEntry `json:"histories"`
}

func (ProfileData) Type() Type     { return TypeProfile }
func (CategorizedData) Type() Type { return TypeCategorized }
func (ListData) Type() Type        { return TypeList }
func (HistoryData) Type() Type     { return TypeHistory }

// Section 是 meta 與 data 合併後的樣子
type Section struct {
	ID   string             `json:"id"`
	Meta models.SectionMeta `json:"meta"`
	Data Data               `json:"data"`
}

// Skeleton 是新建區塊時的初始內容
func Skeleton(t Type) Data {
	switch t {
	case TypeProfile:
		return ProfileData{}
	case TypeCategorized:
		return CategorizedData{Items: []CategoryGroup{}}
	case TypeList:
		return ListData{Lists: []TitledList{}}
	case TypeHistory:
		return HistoryData{Histories: []HistoryEntry{}}
	}
	panic(fmt.Sprintf("section: unknown type %q", t))
}

// Decode 把 store 讀出的 document 轉成 t 對應的 Data。
// 舊格式在記憶體內轉成目前的格式；store 只由 Migrate 或下一次寫入改寫。
func Decode(t Type, raw map[string]any) (Data, error) {
	if len(raw) == 0 {
		return Skeleton(t), nil
	}
	if IsLegacy(t, raw) {
		return convertLegacy(t, raw)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(t, b)
}

// DecodeJSON 解析 request body 或 JSON 化的 document
func DecodeJSON(t Type, b []byte) (Data, error) {
	var (
		d   Data
		err error
	)
	switch t {
	case TypeProfile:
		var v ProfileData
		err = json.Unmarshal(b, &v)
		d = v
	case TypeCategorized:
		var v CategorizedData
		err = json.Unmarshal(b, &v)
		d = v
	case TypeList:
		var v ListData
		err = json.Unmarshal(b, &v)
		d = v
	case TypeHistory:
		var v HistoryData
		err = json.Unmarshal(b, &v)
		d = v
	default:
		return nil, fmt.Errorf("section: unknown type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t, err)
	}
	return normalize(d), nil
}

// Encode 轉成寫入 store 的 map（兩種後端都用 JSON 的欄位名稱）
func Encode(d Data) (map[string]any, error) {
	b, err := json.Marshal(normalize(d))
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize 把 nil slice 換成空 slice，輸出的 JSON 一律是 []
func normalize(d Data) Data {
	switch v := d.(type) {
	case ProfileData:
		return v
	case CategorizedData:
		if v.Items == nil {
			v.Items = []CategoryGroup{}
		}
		for i := range v.Items {
			if v.Items[i].Items == nil {
				v.Items[i].Items = []string{}
			}
		}
		return v
	case ListData:
		if v.Lists == nil {
			v.Lists = []TitledList{}
		}
		for i := range v.Lists {
			if v.Lists[i].Items == nil {
				v.Lists[i].Items = []string{}
			}
		}
		return v
	case HistoryData:
		if v.Histories == nil {
			v.Histories = []HistoryEntry{}
		}
		for i := range v.Histories {
			if v.Histories[i].Details == nil {
				v.Histories[i].Details = []string{}
			}
		}
		return v
	}
	return d
}
