package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/ports"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Qdrant is the secondary VectorStore backend, selected with
// VECTOR_STORE_BACKEND=qdrant. A tenant field is always included in search
// and scroll filters (there is no demo fallback here, unlike the Neo4j
// backend, since Qdrant payload fields are never optional-by-convention the
// way Neo4j properties are).
type Qdrant struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewQdrant dials Qdrant over gRPC and returns a VectorStore backed by the
// given collection.
func NewQdrant(addr, collection string) (*Qdrant, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant: dial %s: %w", addr, err)
	}
	return &Qdrant{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

var _ ports.VectorStore = (*Qdrant)(nil)

// Close closes the underlying gRPC connection.
func (q *Qdrant) Close() error { return q.conn.Close() }

// EnsureCollection creates the collection if it doesn't already exist.
func (q *Qdrant) EnsureCollection(ctx context.Context, dims int) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorstore: qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(dims), Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: qdrant: create collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *Qdrant) UpsertChunks(ctx context.Context, source domain.Source, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", source.ID, c.Index))).String()
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Embedding}}},
			Payload: map[string]*pb.Value{
				"content":   {Kind: &pb.Value_StringValue{StringValue: c.Text}},
				"source_id": {Kind: &pb.Value_StringValue{StringValue: source.ID}},
				"tenant_id": {Kind: &pb.Value_StringValue{StringValue: string(c.TenantID)}},
				"source":    {Kind: &pb.Value_StringValue{StringValue: source.Title}},
			},
		}
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: q.collection, Wait: &wait, Points: points})
	if err != nil {
		return fmt.Errorf("vectorstore: qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, tenant domain.TenantID, embedding []float32, topK int) ([]domain.SearchHit, error) {
	req := &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter: &pb.Filter{
			Must: []*pb.Condition{fieldMatch("tenant_id", string(tenant))},
		},
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant: search: %w", err)
	}

	hits := make([]domain.SearchHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = domain.SearchHit{
			ChunkID:  r.GetId().GetUuid(),
			Score:    r.GetScore(),
			Text:     r.GetPayload()["content"].GetStringValue(),
			SourceID: r.GetPayload()["source_id"].GetStringValue(),
			Source:   r.GetPayload()["source"].GetStringValue(),
		}
	}
	return hits, nil
}

func (q *Qdrant) GetRecentSources(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.Source, error) {
	req := &pb.ScrollPoints{
		CollectionName: q.collection,
		Filter:         &pb.Filter{Must: []*pb.Condition{fieldMatch("tenant_id", string(tenant))}},
		Limit:          ptrUint32(uint32(limit)),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	resp, err := q.points.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: qdrant: scroll: %w", err)
	}

	seen := map[string]domain.Source{}
	for _, p := range resp.GetResult() {
		sourceID := p.GetPayload()["source_id"].GetStringValue()
		if sourceID == "" {
			continue
		}
		seen[sourceID] = domain.Source{
			ID:       sourceID,
			TenantID: tenant,
			Title:    p.GetPayload()["source"].GetStringValue(),
		}
	}

	out := make([]domain.Source, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	return out, nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}}},
		},
	}
}

func ptrUint32(v uint32) *uint32 { return &v }
