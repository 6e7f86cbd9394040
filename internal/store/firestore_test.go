package store

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const fakeProject = "tresde-test"

// fakeFirestore answers the handful of RPCs the repository issues, keeping
// documents keyed by their full resource name.
type fakeFirestore struct {
	firestorepb.UnimplementedFirestoreServer

	mu        sync.Mutex
	docs      map[string]*firestorepb.Document
	rollbacks int
}

func docName(collection, id string) string {
	return "projects/" + fakeProject + "/databases/(default)/documents/" + collection + "/" + id
}

func (f *fakeFirestore) put(collection, id string, fields map[string]*firestorepb.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := timestamppb.Now()
	f.docs[docName(collection, id)] = &firestorepb.Document{
		Name:       docName(collection, id),
		Fields:     fields,
		CreateTime: now,
		UpdateTime: now,
	}
}

func (f *fakeFirestore) stored(collection, id string) *firestorepb.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[docName(collection, id)]
}

func (f *fakeFirestore) rollbackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rollbacks
}

func (f *fakeFirestore) RunQuery(req *firestorepb.RunQueryRequest, stream firestorepb.Firestore_RunQueryServer) error {
	from := req.GetStructuredQuery().GetFrom()
	if len(from) != 1 {
		return status.Error(codes.InvalidArgument, "expected one collection selector")
	}
	prefix := req.GetParent() + "/" + from[0].GetCollectionId() + "/"

	f.mu.Lock()
	var names []string
	for name := range f.docs {
		if rest, ok := strings.CutPrefix(name, prefix); ok && !strings.Contains(rest, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	docs := make([]*firestorepb.Document, len(names))
	for i, name := range names {
		docs[i] = f.docs[name]
	}
	f.mu.Unlock()

	for _, doc := range docs {
		if err := stream.Send(&firestorepb.RunQueryResponse{Document: doc, ReadTime: timestamppb.Now()}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFirestore) BatchGetDocuments(req *firestorepb.BatchGetDocumentsRequest, stream firestorepb.Firestore_BatchGetDocumentsServer) error {
	for _, name := range req.GetDocuments() {
		resp := &firestorepb.BatchGetDocumentsResponse{ReadTime: timestamppb.Now()}
		f.mu.Lock()
		doc, ok := f.docs[name]
		f.mu.Unlock()
		if ok {
			resp.Result = &firestorepb.BatchGetDocumentsResponse_Found{Found: doc}
		} else {
			resp.Result = &firestorepb.BatchGetDocumentsResponse_Missing{Missing: name}
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFirestore) BeginTransaction(context.Context, *firestorepb.BeginTransactionRequest) (*firestorepb.BeginTransactionResponse, error) {
	return &firestorepb.BeginTransactionResponse{Transaction: []byte("tx-1")}, nil
}

func (f *fakeFirestore) Rollback(context.Context, *firestorepb.RollbackRequest) (*emptypb.Empty, error) {
	f.mu.Lock()
	f.rollbacks++
	f.mu.Unlock()
	return &emptypb.Empty{}, nil
}

func (f *fakeFirestore) Commit(_ context.Context, req *firestorepb.CommitRequest) (*firestorepb.CommitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := timestamppb.Now()
	results := make([]*firestorepb.WriteResult, 0, len(req.GetWrites()))
	for _, w := range req.GetWrites() {
		name := w.GetUpdate().GetName()
		if w.GetDelete() != "" {
			name = w.GetDelete()
		}
		existing, exists := f.docs[name]
		if want, ok := w.GetCurrentDocument().GetConditionType().(*firestorepb.Precondition_Exists); ok && want.Exists != exists {
			if exists {
				return nil, status.Errorf(codes.AlreadyExists, "document already exists: %s", name)
			}
			return nil, status.Errorf(codes.NotFound, "no entity to update: %s", name)
		}

		if w.GetDelete() != "" {
			delete(f.docs, name)
		} else {
			created := now
			if exists {
				created = existing.GetCreateTime()
			}
			f.docs[name] = &firestorepb.Document{
				Name:       name,
				Fields:     w.GetUpdate().GetFields(),
				CreateTime: created,
				UpdateTime: now,
			}
		}
		results = append(results, &firestorepb.WriteResult{UpdateTime: now})
	}
	return &firestorepb.CommitResponse{WriteResults: results, CommitTime: now}, nil
}

func newFakeFirestoreCatalog(t *testing.T) (*fakeFirestore, *Catalog) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fake := &fakeFirestore{docs: map[string]*firestorepb.Document{}}
	srv := grpc.NewServer()
	firestorepb.RegisterFirestoreServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	t.Setenv("FIRESTORE_EMULATOR_HOST", lis.Addr().String())
	client, err := firestore.NewClient(context.Background(), fakeProject)
	if err != nil {
		t.Fatalf("firestore client: %v", err)
	}
	catalog := newFirestoreCatalog(client)
	t.Cleanup(func() { _ = catalog.Close() })
	return fake, catalog
}

func str(s string) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_StringValue{StringValue: s}}
}

func integer(n int64) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_IntegerValue{IntegerValue: n}}
}

func double(n float64) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_DoubleValue{DoubleValue: n}}
}

func timestamp(t time.Time) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_TimestampValue{TimestampValue: timestamppb.New(t)}}
}

func TestFirestoreReadsLegacyMarcas(t *testing.T) {
	fake, catalog := newFakeFirestoreCatalog(t)
	ctx := context.Background()

	fake.put("marcas", "abc123", map[string]*firestorepb.Value{
		"nombre":    str("Acme"),
		"logoUrl":   str("/marcas/acme.png"),
		"url":       str("https://acme.example"),
		"orden":     double(2),
		"fecha":     str("2025-01-02"),
		"createdAt": str("2025-01-02T10:00:00.000Z"),
		"updatedAt": str("2025-01-03T08:00:00.000Z"),
	})
	fake.put("marcas", "zz0", map[string]*firestorepb.Value{
		"nombre":    str("Zeta"),
		"logoUrl":   str("/marcas/zeta.png"),
		"orden":     integer(2),
		"createdAt": timestamp(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)),
	})
	fake.put("marcas", "b", map[string]*firestorepb.Value{
		"nombre":  str("Beta"),
		"logoUrl": str("/marcas/beta.png"),
	})

	items, err := catalog.Marcas.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, m := range items {
		ids = append(ids, m.ID)
	}
	if strings.Join(ids, ",") != "b,zz0,abc123" {
		t.Fatalf("expected orden then creation order, got %v", ids)
	}

	got, err := catalog.Marcas.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get legacy marca: %v", err)
	}
	if got.ID != "abc123" || got.Nombre != "Acme" || got.Orden != 2 || got.URL != "https://acme.example" {
		t.Fatalf("unexpected marca %+v", got)
	}
	if want := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC); !got.CreatedAt.Equal(want) {
		t.Fatalf("expected createdAt %v, got %v", want, got.CreatedAt)
	}

	got.Nombre = "Acme SA"
	if err := catalog.Marcas.Update(ctx, got); err != nil {
		t.Fatalf("update legacy marca: %v", err)
	}
	doc := fake.stored("marcas", "abc123")
	if doc.GetFields()["nombre"].GetStringValue() != "Acme SA" {
		t.Fatalf("update not written: %v", doc.GetFields())
	}
	if doc.GetFields()["createdAt"].GetTimestampValue() == nil {
		t.Fatalf("expected createdAt rewritten as a timestamp, got %v", doc.GetFields()["createdAt"])
	}
}

func TestFirestoreRepositoryCRUD(t *testing.T) {
	fake, catalog := newFakeFirestoreCatalog(t)
	ctx := context.Background()
	repo := catalog.Gemelos
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"1714564800000", "1714564860000"} {
		g := Gemelo{ID: id, Titulo: "Casa " + id, Descripcion: "d", Iframe: "https://my.matterport.com/show/?m=" + id, Fecha: "2024-05-01", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, g); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := repo.Create(ctx, Gemelo{ID: "1714564800000", Titulo: "dup"}); err == nil {
		t.Fatal("expected create on an existing id to fail")
	}

	doc := fake.stored("gemelos", "1714564800000")
	if _, ok := doc.GetFields()["id"]; ok {
		t.Fatalf("id must live only in the document name, got fields %v", doc.GetFields())
	}
	if doc.GetFields()["createdAt"].GetTimestampValue() == nil {
		t.Fatalf("expected createdAt stored as a timestamp, got %v", doc.GetFields()["createdAt"])
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "1714564860000" || items[1].ID != "1714564800000" {
		t.Fatalf("expected newest first, got %+v", items)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if err := repo.Update(ctx, Gemelo{ID: "missing", Titulo: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Update, got %v", err)
	}
	if n := fake.rollbackCount(); n != 1 {
		t.Fatalf("expected the failed update to roll back, got %d rollbacks", n)
	}
	if fake.stored("gemelos", "missing") != nil {
		t.Fatal("update must not create a missing document")
	}

	updated := items[1]
	updated.Titulo = "Casa renovada"
	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Get(ctx, updated.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Titulo != "Casa renovada" || !got.CreatedAt.Equal(updated.CreatedAt) {
		t.Fatalf("unexpected record after update %+v", got)
	}

	if err := repo.Delete(ctx, updated.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, updated.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := catalog.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestFirestoreRejectsNonNumericOrden(t *testing.T) {
	fake, catalog := newFakeFirestoreCatalog(t)
	fake.put("marcas", "x", map[string]*firestorepb.Value{
		"nombre": str("X"),
		"orden":  str("primero"),
	})
	if _, err := catalog.Marcas.Get(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "orden") {
		t.Fatalf("expected an orden decode error, got %v", err)
	}
}
