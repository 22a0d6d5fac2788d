package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory 是記憶體版 document store。dir 不為空時，每次寫入後把該 collection
// 存成 <dir>/<collection>.json，啟動時讀回來（本機開發用）。
type Memory struct {
	mu    sync.RWMutex
	dir   string
	colls map[string]map[string]json.RawMessage // collection -> id -> document
}

func NewMemory(dir string) (*Memory, error) {
	m := &Memory{dir: dir, colls: map[string]map[string]json.RawMessage{}}
	if dir == "" {
		return m, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		coll := strings.TrimSuffix(filepath.Base(f), ".json")
		docs := map[string]json.RawMessage{}
		if err := readJSONFile(f, &docs); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		m.colls[coll] = docs
	}
	return m, nil
}

func readJSONFile[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return os.WriteFile(path, b, 0o644)
}

type memSnapshot struct {
	id  string
	raw json.RawMessage
}

func (s memSnapshot) ID() string { return s.id }

func (s memSnapshot) DataTo(p any) error { return json.Unmarshal(s.raw, p) }

// ===== 需要呼叫端持有鎖的內部操作 =====

func (m *Memory) getLocked(coll, id string) (Snapshot, error) {
	raw, ok := m.colls[coll][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	return memSnapshot{id: id, raw: raw}, nil
}

type memDoc struct {
	id     string
	raw    json.RawMessage
	fields map[string]any
}

func (m *Memory) queryLocked(q Query) ([]Snapshot, error) {
	docs := make([]memDoc, 0, len(m.colls[q.Collection]))
	for id, raw := range m.colls[q.Collection] {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, memDoc{id: id, raw: raw, fields: fields})
	}

	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		f.Value = normalize(f.Value)
		filters[i] = f
	}

	out := docs[:0]
	for _, d := range docs {
		if matchAll(d.fields, filters) && hasFields(d.fields, q.Orders) {
			out = append(out, d)
		}
	}

	less := func(a, b memDoc) bool {
		for _, o := range q.Orders {
			c, _ := compareValues(a.fields[o.Field], b.fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return a.id < b.id
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if q.StartAfter != "" {
		raw, ok := m.colls[q.Collection][q.StartAfter]
		if !ok {
			return nil, fmt.Errorf("cursor %s/%s: %w", q.Collection, q.StartAfter, ErrNotFound)
		}
		cursor := memDoc{id: q.StartAfter, raw: raw}
		if err := json.Unmarshal(raw, &cursor.fields); err != nil {
			return nil, err
		}
		idx := sort.Search(len(out), func(i int) bool { return less(cursor, out[i]) })
		out = out[idx:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	snaps := make([]Snapshot, 0, len(out))
	for _, d := range out {
		snaps = append(snaps, memSnapshot{id: d.id, raw: d.raw})
	}
	return snaps, nil
}

func (m *Memory) writeLocked(coll, id string, raw json.RawMessage) {
	docs := m.colls[coll]
	if docs == nil {
		docs = map[string]json.RawMessage{}
		m.colls[coll] = docs
	}
	docs[id] = raw
}

func (m *Memory) updateLocked(coll, id string, fields map[string]any) (json.RawMessage, error) {
	raw, ok := m.colls[coll][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}
	var cur map[string]any
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, err
	}
	if cur == nil {
		cur = map[string]any{}
	}
	for k, v := range fields {
		cur[k] = v
	}
	return json.Marshal(cur)
}

func (m *Memory) persistLocked(colls ...string) error {
	if m.dir == "" {
		return nil
	}
	for _, c := range colls {
		if err := writeJSONFile(filepath.Join(m.dir, c+".json"), m.colls[c]); err != nil {
			return fmt.Errorf("persist %s: %w", c, err)
		}
	}
	return nil
}

// ===== Store =====

func (m *Memory) Get(_ context.Context, coll, id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(coll, id)
}

func (m *Memory) Query(_ context.Context, q Query) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(q)
}

func (m *Memory) Create(_ context.Context, coll, id string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = newDocID()
	}
	if _, ok := m.colls[coll][id]; ok {
		return "", fmt.Errorf("%s/%s: %w", coll, id, ErrAlreadyExists)
	}
	m.writeLocked(coll, id, raw)
	return id, m.persistLocked(coll)
}

func (m *Memory) Set(_ context.Context, coll, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeLocked(coll, id, raw)
	return m.persistLocked(coll)
}

func (m *Memory) Update(_ context.Context, coll, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := m.updateLocked(coll, id, fields)
	if err != nil {
		return err
	}
	m.writeLocked(coll, id, raw)
	return m.persistLocked(coll)
}

func (m *Memory) Delete(_ context.Context, coll, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.colls[coll], id)
	return m.persistLocked(coll)
}

// RunTransaction 持有整個 store 的寫鎖；fn 回傳錯誤時所有寫入都不會套用。
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (m *Memory) Close() error { return nil }

func newDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// ===== Transaction =====

type memWrite struct {
	coll   string
	id     string
	raw    json.RawMessage // nil 代表刪除
	create bool
	fields map[string]any
}

type memTx struct {
	m      *Memory
	writes []memWrite
}

func (t *memTx) Get(coll, id string) (Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.m.getLocked(coll, id)
}

func (t *memTx) Query(q Query) ([]Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	return t.m.queryLocked(q)
}

func (t *memTx) Create(coll, id string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = newDocID()
	}
	t.writes = append(t.writes, memWrite{coll: coll, id: id, raw: raw, create: true})
	return id, nil
}

func (t *memTx) Set(coll, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, memWrite{coll: coll, id: id, raw: raw})
	return nil
}

func (t *memTx) Update(coll, id string, fields map[string]any) error {
	t.writes = append(t.writes, memWrite{coll: coll, id: id, fields: fields})
	return nil
}

func (t *memTx) Delete(coll, id string) error {
	t.writes = append(t.writes, memWrite{coll: coll, id: id})
	return nil
}

// commit 先在副本上套用所有寫入，全部成功才換回去
func (t *memTx) commit() error {
	m := t.m
	staged := map[string]map[string]json.RawMessage{}
	docsOf := func(coll string) map[string]json.RawMessage {
		if d, ok := staged[coll]; ok {
			return d
		}
		d := make(map[string]json.RawMessage, len(m.colls[coll]))
		for k, v := range m.colls[coll] {
			d[k] = v
		}
		staged[coll] = d
		return d
	}

	for _, w := range t.writes {
		docs := docsOf(w.coll)
		switch {
		case w.fields != nil:
			raw, ok := docs[w.id]
			if !ok {
				return fmt.Errorf("%s/%s: %w", w.coll, w.id, ErrNotFound)
			}
			var cur map[string]any
			if err := json.Unmarshal(raw, &cur); err != nil {
				return err
			}
			if cur == nil {
				cur = map[string]any{}
			}
			for k, v := range w.fields {
				cur[k] = v
			}
			b, err := json.Marshal(cur)
			if err != nil {
				return err
			}
			docs[w.id] = b
		case w.raw == nil:
			delete(docs, w.id)
		default:
			if _, ok := docs[w.id]; ok && w.create {
				return fmt.Errorf("%s/%s: %w", w.coll, w.id, ErrAlreadyExists)
			}
			docs[w.id] = w.raw
		}
	}

	touched := make([]string, 0, len(staged))
	for coll, docs := range staged {
		m.colls[coll] = docs
		touched = append(touched, coll)
	}
	sort.Strings(touched)
	return m.persistLocked(touched...)
}

// ===== 比較 / 篩選 =====

// normalize 讓呼叫端傳入的值（int、time.Time…）跟 JSON 解出來的值同型別
func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func hasFields(fields map[string]any, orders []Order) bool {
	for _, o := range orders {
		if _, ok := fields[o.Field]; !ok {
			return false
		}
	}
	return true
}

func matchAll(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		if f.Op == OpArrayContains {
			arr, _ := v.([]any)
			found := false
			for _, x := range arr {
				if c, ok := compareValues(x, f.Value); ok && c == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		c, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			ok = c == 0
		case OpLt:
			ok = c < 0
		case OpLte:
			ok = c <= 0
		case OpGt:
			ok = c > 0
		case OpGte:
			ok = c >= 0
		default:
			ok = false
		}
		if !ok {
			return false
		}
	}
	return true
}

// compareValues 只比較同型別的值；第二個回傳值為 false 代表無法比較
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		// 時間字串用時間比較（RFC3339Nano 會省略尾端的 0，字典序不可靠）
		if tx, err := time.Parse(time.RFC3339Nano, x); err == nil {
			if ty, err := time.Parse(time.RFC3339Nano, y); err == nil {
				return tx.Compare(ty), true
			}
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}
