package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tresde/api/internal/config"
)

// FirestoreRepository stores one collection with the record id as the
// document id. The id itself is not duplicated into the document body.
type FirestoreRepository[T Record] struct {
	client     *firestore.Client
	collection string
	toDoc      func(T) any
	fromDoc    func(*firestore.DocumentSnapshot) (T, error)
	order      func([]T)
}

func (r *FirestoreRepository[T]) coll() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *FirestoreRepository[T]) decode(doc *firestore.DocumentSnapshot) (T, error) {
	record, err := r.fromDoc(doc)
	if err != nil {
		return record, fmt.Errorf("decode %s/%s: %w", r.collection, doc.Ref.ID, err)
	}
	return record, nil
}

// List sorts in memory so documents missing the sort field are still
// returned.
func (r *FirestoreRepository[T]) List(ctx context.Context) ([]T, error) {
	docs, err := r.coll().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.collection, err)
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		record, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	r.order(items)
	return items, nil
}

func (r *FirestoreRepository[T]) Get(ctx context.Context, id string) (T, error) {
	doc, err := r.coll().Doc(id).Get(ctx)
	if err != nil {
		var zero T
		if status.Code(err) == codes.NotFound {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("get %s/%s: %w", r.collection, id, err)
	}
	return r.decode(doc)
}

func (r *FirestoreRepository[T]) Create(ctx context.Context, record T) error {
	if _, err := r.coll().Doc(record.RecordID()).Create(ctx, r.toDoc(record)); err != nil {
		return fmt.Errorf("create %s/%s: %w", r.collection, record.RecordID(), err)
	}
	return nil
}

func (r *FirestoreRepository[T]) Update(ctx context.Context, record T) error {
	id := record.RecordID()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.coll().Doc(id)
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, r.toDoc(record))
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", r.collection, id, err)
	}
	return nil
}

func (r *FirestoreRepository[T]) Delete(ctx context.Context, id string) error {
	_, err := r.coll().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.collection, id, err)
	}
	return nil
}

func openFirestore(ctx context.Context, cfg config.FirebaseConfig) (*Catalog, error) {
	creds := []byte(cfg.CredentialsJSON)
	if len(creds) == 0 {
		var err error
		creds, err = serviceAccountJSON(cfg.ClientEmail, cfg.PrivateKey, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return newFirestoreCatalog(client), nil
}

func newFirestoreCatalog(client *firestore.Client) *Catalog {
	return &Catalog{
		Backend: "firestore",
		Gemelos: &FirestoreRepository[Gemelo]{
			client:     client,
			collection: string(KindGemelos),
			toDoc:      gemeloToDoc,
			fromDoc:    gemeloFromDoc,
			order:      SortGemelos,
		},
		Marcas: &FirestoreRepository[Marca]{
			client:     client,
			collection: string(KindMarcas),
			toDoc:      marcaToDoc,
			fromDoc:    marcaFromDoc,
			order:      SortMarcas,
		},
		ping: func(ctx context.Context) error {
			_, err := client.Collection(string(KindMarcas)).Limit(1).Documents(ctx).GetAll()
			return err
		},
		close: client.Close,
	}
}
