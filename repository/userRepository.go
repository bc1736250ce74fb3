package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rms-be/models"
)

// UserRepository handles user data access operations.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{users: db.Collection(UsersCollection)}
}

// FindUser retrieves a user by their ID.
func (r *UserRepository) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, fmt.Sprintf("find user %s", id.Hex()))
	}
	return &user, nil
}

// FindUsers retrieves the users with the given IDs in one query. Unknown IDs
// are skipped; password hashes are never loaded.
func (r *UserRepository) FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := r.users.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"passwordHash": 0}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// FindUserByEmail retrieves a user by their normalized email address.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err, "find user by email")
	}
	return &user, nil
}

// CreateUser inserts a user; a taken email surfaces as ErrConflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return translate(err, "insert user")
	}
	return nil
}

// ListUsersByRole returns up to limit active users holding one of roles.
func (r *UserRepository) ListUsersByRole(ctx context.Context, roles []models.Role, limit int) ([]models.User, error) {
	cursor, err := r.users.Find(ctx,
		bson.M{"role": bson.M{"$in": roles}, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find users by role: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}
