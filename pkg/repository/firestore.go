package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultMemoryCollection = "memories"
	distanceField           = "VectorDistance"
)

// Firestore is a MemoryStore backed by Firestore native vector search
type Firestore struct {
	client     *firestore.Client
	embedder   interfaces.Embedder
	collection string
}

// FirestoreOption is a functional option for Firestore store
type FirestoreOption func(*Firestore)

// WithCollection overrides the collection holding memory records
func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// NewFirestore connects to the Firestore database
func NewFirestore(ctx context.Context, projectID, databaseID string, embedder interfaces.Embedder, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	f := &Firestore{
		client:     client,
		embedder:   embedder,
		collection: defaultMemoryCollection,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Close closes the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Add(ctx context.Context, text string, role model.Role, timestamp time.Time) (*model.MemoryRecord, error) {
	rec, err := newRecord(ctx, f.embedder, text, role, timestamp)
	if err != nil {
		return nil, err
	}

	doc := f.client.Collection(f.collection).Doc(string(rec.ID))
	if _, err := doc.Create(ctx, rec); err != nil {
		if status.Code(err) != codes.AlreadyExists {
			return nil, goerr.Wrap(err, "failed to create memory record", goerr.V("id", rec.ID))
		}

		snap, err := doc.Get(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get existing memory record", goerr.V("id", rec.ID))
		}
		var existing model.MemoryRecord
		if err := snap.DataTo(&existing); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory record", goerr.V("id", rec.ID))
		}
		return &existing, nil
	}

	return rec, nil
}

func (f *Firestore) Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]*model.RetrievalResult, error) {
	if topK < 1 {
		return []*model.RetrievalResult{}, nil
	}

	vec, err := embedQuery(ctx, f.embedder, query)
	if err != nil {
		return nil, err
	}

	cfg := newSearchConfig(opts)
	q := f.client.Collection(f.collection).Query
	if cfg.role != "" {
		q = q.Where("Role", "==", string(cfg.role))
	}

	vq := q.FindNearest("Embedding", firestore.Vector32(vec), topK, firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := []*model.RetrievalResult{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search result")
		}

		var rec model.MemoryRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory record", goerr.V("id", snap.Ref.ID))
		}

		// cosine distance is 1 - cosine similarity
		distance, _ := snap.Data()[distanceField].(float64)
		results = append(results, toResult(&rec, 1-distance))
	}

	sortResults(results)
	return results, nil
}

func (f *Firestore) List(ctx context.Context) ([]*model.MemoryRecord, error) {
	iter := f.client.Collection(f.collection).OrderBy("Timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []*model.MemoryRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory records")
		}

		var rec model.MemoryRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory record", goerr.V("id", snap.Ref.ID))
		}
		records = append(records, &rec)
	}

	sortChronological(records)
	return records, nil
}
