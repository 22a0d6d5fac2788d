// Package store 把 document store 抽象成 collection / document 的操作。
// 正式環境用 Firestore，本機開發與測試用記憶體版（可選擇落地成 JSON 檔）。
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("store: document not found")
	ErrAlreadyExists  = errors.New("store: document already exists")
	ErrReadAfterWrite = errors.New("store: transaction reads must happen before writes")
)

type Op string

const (
	OpEq            Op = "=="
	OpLt            Op = "<"
	OpLte           Op = "<="
	OpGt            Op = ">"
	OpGte           Op = ">="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

// Query 沒有 Orders 時依 document ID 排序（與 Firestore 相同）。
// 有 Orders 時，缺少排序欄位的文件不會出現在結果中。
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Limit      int
	StartAfter string // cursor：上一頁最後一筆的 document ID
}

func (q Query) Where(field string, op Op, v any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: v})
	return q
}

func (q Query) OrderBy(field string, desc bool) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Desc: desc})
	return q
}

type Snapshot interface {
	ID() string
	DataTo(p any) error
}

type Reader interface {
	Get(ctx context.Context, coll, id string) (Snapshot, error)
	Query(ctx context.Context, q Query) ([]Snapshot, error)
}

// Tx 與 Firestore transaction 同樣限制：所有讀取必須在寫入之前。
type Tx interface {
	Get(coll, id string) (Snapshot, error)
	Query(q Query) ([]Snapshot, error)
	// Create 在 id 為空時自動產生，回傳實際的 id
	Create(coll, id string, v any) (string, error)
	Set(coll, id string, v any) error
	Update(coll, id string, fields map[string]any) error
	Delete(coll, id string) error
}

type Store interface {
	Reader
	Create(ctx context.Context, coll, id string, v any) (string, error)
	Set(ctx context.Context, coll, id string, v any) error
	Update(ctx context.Context, coll, id string, fields map[string]any) error
	Delete(ctx context.Context, coll, id string) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Document 是 models 裡帶 SetID 的 record 指標
type Document[E any] interface {
	*E
	SetID(id string)
}

func Decode[E any, P Document[E]](snap Snapshot) (E, error) {
	var e E
	if err := snap.DataTo(&e); err != nil {
		return e, fmt.Errorf("decode %s: %w", snap.ID(), err)
	}
	P(&e).SetID(snap.ID())
	return e, nil
}

func DecodeAll[E any, P Document[E]](snaps []Snapshot) ([]E, error) {
	out := make([]E, 0, len(snaps))
	for _, s := range snaps {
		e, err := Decode[E, P](s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
