package store

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore 是正式環境的 document store
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

type fsSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s fsSnapshot) ID() string { return s.snap.Ref.ID }

func (s fsSnapshot) DataTo(p any) error { return s.snap.DataTo(p) }

func wrapSnaps(docs []*firestore.DocumentSnapshot) []Snapshot {
	out := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, fsSnapshot{snap: d})
	}
	return out
}

// mapErr 把 gRPC 狀態碼轉成 store 的 sentinel error
func mapErr(err error, coll, id string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", coll, id, ErrAlreadyExists)
	}
	return fmt.Errorf("%s/%s: %w", coll, id, err)
}

func toUpdates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ups := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		ups = append(ups, firestore.Update{Path: k, Value: fields[k]})
	}
	return ups
}

// build 把 Query 轉成 firestore.Query；cursor 需要先讀出對應的 snapshot
func (f *Firestore) build(q Query, cursor func(*firestore.DocumentRef) (*firestore.DocumentSnapshot, error)) (firestore.Query, error) {
	coll := f.client.Collection(q.Collection)
	fq := coll.Query
	for _, w := range q.Filters {
		fq = fq.Where(w.Field, string(w.Op), w.Value)
	}
	for _, o := range q.Orders {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.StartAfter != "" {
		snap, err := cursor(coll.Doc(q.StartAfter))
		if err != nil {
			return fq, mapErr(err, q.Collection, q.StartAfter)
		}
		fq = fq.StartAfter(snap)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq, nil
}

func (f *Firestore) Get(ctx context.Context, coll, id string) (Snapshot, error) {
	snap, err := f.client.Collection(coll).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err, coll, id)
	}
	return fsSnapshot{snap: snap}, nil
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	fq, err := f.build(q, func(ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
		return ref.Get(ctx)
	})
	if err != nil {
		return nil, err
	}
	docs, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return wrapSnaps(docs), nil
}

func (f *Firestore) Create(ctx context.Context, coll, id string, v any) (string, error) {
	ref := f.client.Collection(coll).NewDoc()
	if id != "" {
		ref = f.client.Collection(coll).Doc(id)
	}
	if _, err := ref.Create(ctx, v); err != nil {
		return "", mapErr(err, coll, ref.ID)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, coll, id string, v any) error {
	_, err := f.client.Collection(coll).Doc(id).Set(ctx, v)
	return mapErr(err, coll, id)
}

func (f *Firestore) Update(ctx context.Context, coll, id string, fields map[string]any) error {
	_, err := f.client.Collection(coll).Doc(id).Update(ctx, toUpdates(fields))
	return mapErr(err, coll, id)
}

func (f *Firestore) Delete(ctx context.Context, coll, id string) error {
	_, err := f.client.Collection(coll).Doc(id).Delete(ctx)
	return mapErr(err, coll, id)
}

func (f *Firestore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return f.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &fsTx{f: f, tx: t})
	})
}

func (f *Firestore) Close() error { return f.client.Close() }

type fsTx struct {
	f  *Firestore
	tx *firestore.Transaction
}

func (t *fsTx) Get(coll, id string) (Snapshot, error) {
	snap, err := t.tx.Get(t.f.client.Collection(coll).Doc(id))
	if err != nil {
		return nil, mapErr(err, coll, id)
	}
	return fsSnapshot{snap: snap}, nil
}

func (t *fsTx) Query(q Query) ([]Snapshot, error) {
	fq, err := t.f.build(q, t.tx.Get)
	if err != nil {
		return nil, err
	}
	docs, err := t.tx.Documents(fq).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return wrapSnaps(docs), nil
}

func (t *fsTx) Create(coll, id string, v any) (string, error) {
	ref := t.f.client.Collection(coll).NewDoc()
	if id != "" {
		ref = t.f.client.Collection(coll).Doc(id)
	}
	return ref.ID, t.tx.Create(ref, v)
}

func (t *fsTx) Set(coll, id string, v any) error {
	return t.tx.Set(t.f.client.Collection(coll).Doc(id), v)
}

func (t *fsTx) Update(coll, id string, fields map[string]any) error {
	return t.tx.Update(t.f.client.Collection(coll).Doc(id), toUpdates(fields))
}

func (t *fsTx) Delete(coll, id string) error {
	return t.tx.Delete(t.f.client.Collection(coll).Doc(id))
}
