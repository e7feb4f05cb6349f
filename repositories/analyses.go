package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"video-insight/models"
)

type AnalysisRepository struct {
	col *mongo.Collection
}

func NewAnalysisRepository(db *mongo.Database) *AnalysisRepository {
	return &AnalysisRepository{col: db.Collection("analyses")}
}

func (r *AnalysisRepository) FindByID(ctx context.Context, id string) (*models.Analysis, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByURL looks up by canonical watch URL.
func (r *AnalysisRepository) FindByURL(ctx context.Context, url string) (*models.Analysis, error) {
	return r.findOne(ctx, bson.M{"url": url})
}

func (r *AnalysisRepository) findOne(ctx context.Context, filter bson.M) (*models.Analysis, error) {
	var a models.Analysis
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Insert fails with ErrDuplicate when the url is already taken.
func (r *AnalysisRepository) Insert(ctx context.Context, a *models.Analysis) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateFields sets the given columns and updated_at in one write.
func (r *AnalysisRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionStatus moves field to `to` only if it currently holds one of
// `from`. It reports whether this call won the transition.
func (r *AnalysisRepository) TransitionStatus(ctx context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error) {
	if err := CheckStatusField(field); err != nil {
		return false, err
	}
	if err := CheckFields(extra); err != nil {
		return false, err
	}
	set := bson.M{field: to, "updated_at": time.Now()}
	for k, v := range extra {
		set[k] = v
	}
	filter := bson.M{"_id": id, field: bson.M{"$in": StatusStrings(from)}}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("transition %s to %s: %w", field, to, err)
	}
	return res.MatchedCount == 1, nil
}

// ListStale returns records whose status field is processing and which
// have not been touched since before.
func (r *AnalysisRepository) ListStale(ctx context.Context, field string, before time.Time, limit int) ([]models.Analysis, error) {
	if err := CheckStatusField(field); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{
		field:        string(models.StatusProcessing),
		"updated_at": bson.M{"$lt": before},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Analysis
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
