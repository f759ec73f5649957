// Package semantic owns all Qdrant operations for the verse index. The
// indexer upserts verse records; the retriever runs similarity search.
package semantic

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vivekavani/gita-engine/pkg/fn"
)

// VectorStore is the sole owner of the Qdrant collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection. Used by full re-ingestion.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// PointID derives the deterministic Qdrant point UUID for a verse record id.
// The same verse always maps to the same point, so re-ingestion overwrites
// instead of duplicating.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// upsertBatch caps the points per Upsert RPC.
const upsertBatch = 64

// Upsert stores verse records, splitting large sets across multiple RPCs.
// Called by engine/ingest.
func (v *VectorStore) Upsert(ctx context.Context, records []VerseRecord) error {
	if len(records) == 0 {
		return nil
	}

	for _, batch := range fn.Chunk(records, upsertBatch) {
		points := fn.Map(batch, pointFromRecord)
		wait := true
		_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("semantic: upsert %d points: %w", len(batch), err)
		}
	}
	return nil
}

func pointFromRecord(r VerseRecord) *pb.PointStruct {
	payload := make(map[string]*pb.Value, len(r.Payload)+2)
	payload["record_id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.ID}}
	payload["content"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.Text}}
	for k, val := range r.Payload {
		payload[k] = toValue(val)
	}

	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ID)},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: r.Embedding},
			},
		},
		Payload: payload,
	}
}

// Search performs k-NN similarity search over the whole collection.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error) {
	return v.SearchChapter(ctx, embedding, topK, 0)
}

// SearchChapter performs similarity search scoped to one chapter. A chapter
// of zero searches the whole collection.
func (v *VectorStore) SearchChapter(ctx context.Context, embedding []float32, topK int, chapter int) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if chapter > 0 {
		req.Filter = &pb.Filter{Must: []*pb.Condition{intMatch("chapter_number", int64(chapter))}}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = resultFromPayload(r.GetScore(), r.GetPayload())
	}
	return results, nil
}

// resultFromPayload lifts the well-known verse fields out of a point payload.
func resultFromPayload(score float32, payload map[string]*pb.Value) SearchResult {
	sr := SearchResult{
		Score: score,
		Meta:  make(map[string]string),
	}
	for k, val := range payload {
		switch k {
		case "record_id":
			sr.ID = val.GetStringValue()
		case "content":
			sr.Content = val.GetStringValue()
		case "chapter_number":
			sr.ChapterNumber = int(val.GetIntegerValue())
		case "verse_number":
			sr.VerseNumber = int(val.GetIntegerValue())
		case "verse_title":
			sr.VerseTitle = val.GetStringValue()
		case "source":
			sr.Source = val.GetStringValue()
		default:
			sr.Meta[k] = valueString(val)
		}
	}
	return sr
}

func toValue(val any) *pb.Value {
	switch tv := val.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func valueString(val *pb.Value) string {
	switch val.GetKind().(type) {
	case *pb.Value_StringValue:
		return val.GetStringValue()
	case *pb.Value_IntegerValue:
		return strconv.FormatInt(val.GetIntegerValue(), 10)
	case *pb.Value_DoubleValue:
		return strconv.FormatFloat(val.GetDoubleValue(), 'g', -1, 64)
	case *pb.Value_BoolValue:
		return strconv.FormatBool(val.GetBoolValue())
	default:
		return ""
	}
}

func intMatch(key string, value int64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Integer{Integer: value},
				},
			},
		},
	}
}
