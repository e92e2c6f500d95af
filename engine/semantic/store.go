// Package semantic owns all Qdrant operations. Collections are addressed by
// name; records carry the external string id in their payload and map to
// deterministic UUID point ids.
package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/coursebot/coursebot/engine/domain"
)

// scrollPageSize bounds one Scroll round trip.
const scrollPageSize = 256

// pointsAPI is the subset of the Qdrant points service the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
}

// collectionsAPI is the subset of the Qdrant collections service the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
}

// VectorStore is the sole owner of the durable vector collections.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// NewWithClients creates a VectorStore over pre-built clients. Used in tests.
func NewWithClients(points pointsAPI, collections collectionsAPI) *VectorStore {
	return &VectorStore{points: points, collections: collections}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// Exists reports whether the named collection exists.
func (v *VectorStore) Exists(ctx context.Context, name string) (bool, error) {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the named collection if absent. Idempotent and
// side-effect-free when the collection already exists.
func (v *VectorStore) EnsureCollection(ctx context.Context, name string, dims int) error {
	exists, err := v.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection destroys the named collection and all its records. Only
// explicit forced rebuilds call this.
func (v *VectorStore) DeleteCollection(ctx context.Context, name string) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", name, err)
	}
	return nil
}

// Dims returns the vector dimensionality of the named collection.
func (v *VectorStore) Dims(ctx context.Context, name string) (int, error) {
	info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return 0, fmt.Errorf("semantic: collection info %s: %w", name, err)
	}
	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, fmt.Errorf("semantic: collection %s has no vector params", name)
	}
	return int(params.GetSize()), nil
}

// ExistingIDs returns the set of external ids stored in the collection. The
// ingestion pipeline uses it to compute the insert delta.
func (v *VectorStore) ExistingIDs(ctx context.Context, name string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	err := v.scroll(ctx, name, false, func(p *pb.RetrievedPoint) {
		if id := p.GetPayload()["id"].GetStringValue(); id != "" {
			ids[id] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Upsert durably writes a batch of records. Callers must filter ids already
// present; the store does not deduplicate. The write is acknowledged only
// after Qdrant has applied it (wait=true), so a completed batch is visible
// atomically to readers.
func (v *VectorStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Vector},
				},
			},
			Payload: recordPayload(r),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points into %s: %w", len(records), name, err)
	}
	return nil
}

// Query performs k-NN search, returning at most k hits in ascending distance
// order. An empty collection yields an empty slice; a collection that was
// never built yields domain.ErrCollectionNotFound and is not auto-created.
func (v *VectorStore) Query(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	exists, err := v.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("semantic: collection %s: %w", name, domain.ErrCollectionNotFound)
	}

	dims, err := v.Dims(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("semantic: query %s: %w", name, &domain.DimensionMismatchError{Want: dims, Got: len(vector)})
	}

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", name, err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		hits[i] = Hit{
			ID: p.GetPayload()["id"].GetStringValue(),
			// Qdrant reports cosine similarity; store the Chroma-style
			// distance so lower always means closer.
			Distance: 1 - float64(p.GetScore()),
			Document: p.GetPayload()["document"].GetStringValue(),
			Meta:     payloadMeta(p.GetPayload()),
		}
	}
	return hits, nil
}

// GetAll dumps every record in the collection. Validation and debugging only;
// the query path never depends on it.
func (v *VectorStore) GetAll(ctx context.Context, name string) ([]Record, error) {
	var records []Record
	err := v.scroll(ctx, name, true, func(p *pb.RetrievedPoint) {
		records = append(records, Record{
			ID:       p.GetPayload()["id"].GetStringValue(),
			Vector:   p.GetVectors().GetVector().GetData(),
			Document: p.GetPayload()["document"].GetStringValue(),
			Meta:     payloadMeta(p.GetPayload()),
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// scroll pages through all points of a collection.
func (v *VectorStore) scroll(ctx context.Context, name string, withVectors bool, visit func(*pb.RetrievedPoint)) error {
	limit := uint32(scrollPageSize)
	var offset *pb.PointId

	for {
		req := &pb.ScrollPoints{
			CollectionName: name,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		}
		if withVectors {
			req.WithVectors = &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}}
		}

		resp, err := v.points.Scroll(ctx, req)
		if err != nil {
			return fmt.Errorf("semantic: scroll %s: %w", name, err)
		}
		for _, p := range resp.GetResult() {
			visit(p)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return nil
		}
	}
}

// pointID derives the deterministic Qdrant point UUID for an external id.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("coursebot:"+id)).String()
}

// recordPayload flattens a record into a Qdrant payload. Price and rating are
// stored as doubles; everything else as strings.
func recordPayload(r Record) map[string]*pb.Value {
	str := func(s string) *pb.Value {
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
	}
	dbl := func(f float64) *pb.Value {
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
	}
	return map[string]*pb.Value{
		"id":       str(r.ID),
		"document": str(r.Document),
		"title":    str(r.Meta.Title),
		"teacher":  str(r.Meta.Teacher),
		"category": str(r.Meta.Category),
		"link":     str(r.Meta.Link),
		"price":    dbl(r.Meta.Price),
		"rating":   dbl(r.Meta.Rating),
		"platform": str(r.Meta.Platform),
		"duration": str(r.Meta.Duration),
		"image":    str(r.Meta.Image),
	}
}

// payloadMeta rebuilds display metadata from a payload. Collections written
// by older builds carry price and rating as strings, so both shapes decode.
func payloadMeta(payload map[string]*pb.Value) domain.CourseMeta {
	str := func(k string) string { return payload[k].GetStringValue() }
	num := func(k string) float64 {
		v := payload[k]
		switch v.GetKind().(type) {
		case *pb.Value_DoubleValue:
			return v.GetDoubleValue()
		case *pb.Value_IntegerValue:
			return float64(v.GetIntegerValue())
		default:
			return domain.CoerceFloat(v.GetStringValue())
		}
	}
	return domain.CourseMeta{
		Title:    str("title"),
		Teacher:  str("teacher"),
		Category: str("category"),
		Link:     str("link"),
		Price:    num("price"),
		Rating:   num("rating"),
		Platform: str("platform"),
		Duration: str("duration"),
		Image:    str("image"),
	}
}
