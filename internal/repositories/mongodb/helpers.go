package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"miniola/internal/repositories/interfaces"
)

// missOrConflict explains why a conditional update matched nothing: the
// document is gone (ErrNotFound) or its state failed the precondition
// (ErrConflict).
func missOrConflict(ctx context.Context, collection *mongo.Collection, existsFilter bson.M, what string) error {
	n, err := collection.CountDocuments(ctx, existsFilter, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, interfaces.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, interfaces.ErrConflict)
}

func exists(ctx context.Context, collection *mongo.Collection, filter bson.M) (bool, error) {
	n, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func insertErr(err error, what string) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, interfaces.ErrDuplicate)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}

func findErr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, interfaces.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func byID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
