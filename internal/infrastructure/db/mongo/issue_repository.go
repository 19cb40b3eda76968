package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

const collectionIssues = "issues"

type IssueRepository struct {
	db  *mongo.Database
	col *mongo.Collection
	now func() time.Time
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{
		db:  db,
		col: db.Collection(collectionIssues),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ownedBy is the filter every targeted query uses.
func ownedBy(id, ownerID int64) bson.M {
	return bson.M{"_id": id, "user_id": ownerID}
}

// Create inserts a new issue document and fills in its ID.
func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionIssues)
	if err != nil {
		return err
	}

	now := r.now().Truncate(time.Millisecond)
	doc := *issue
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	*issue = doc
	return nil
}

// ListByOwner returns every issue owned by ownerID in id order.
func (r *IssueRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"user_id": ownerID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find issues: %w", err)
	}
	defer cur.Close(ctx)

	issues := make([]*domain.Issue, 0)
	if err := cur.All(ctx, &issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	return normalize(issues...), nil
}

// FindByID retrieves an issue by id, restricted to ownerID.
func (r *IssueRepository) FindByID(ctx context.Context, id, ownerID int64) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var issue domain.Issue
	if err := r.col.FindOne(ctx, ownedBy(id, ownerID)).Decode(&issue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return normalize(&issue)[0], nil
}

// Update sets the patched fields and updated_at in one round trip and returns
// the document as it is after the write.
func (r *IssueRepository) Update(ctx context.Context, id, ownerID int64, patch domain.IssuePatch) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": r.now().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var issue domain.Issue
	err := r.col.FindOneAndUpdate(ctx, ownedBy(id, ownerID), bson.M{"$set": set}, opts).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}
	return normalize(&issue)[0], nil
}

func (r *IssueRepository) Delete(ctx context.Context, id, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, ownedBy(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrIssueNotFound
	}
	return nil
}

// EnsureIndexes creates the owner index used by every query.
func (r *IssueRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// normalize converts decoded timestamps to UTC.
func normalize(issues ...*domain.Issue) []*domain.Issue {
	for _, i := range issues {
		i.CreatedAt = i.CreatedAt.UTC()
		i.UpdatedAt = i.UpdatedAt.UTC()
	}
	return issues
}
