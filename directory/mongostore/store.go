package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	eduAuth "github.com/MrEthical07/eduAuth"
)

const (
	AdminCollection = "admins"
	UserCollection  = "users"
)

type Store struct {
	admins *mongo.Collection
	users  *mongo.Collection
}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func New(db *mongo.Database) *Store {
	return &Store{
		admins: db.Collection(AdminCollection),
		users:  db.Collection(UserCollection),
	}
}

func (s *Store) collection(role eduAuth.Role) (*mongo.Collection, error) {
	switch role {
	case eduAuth.RoleAdmin:
		return s.admins, nil
	case eduAuth.RoleUser:
		return s.users, nil
	}
	return nil, eduAuth.ErrRoleNotAllowed
}

// EnsureIndexes creates the partial unique indexes on email and mobile plus a
// case-insensitive collation index for email lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	live := bson.M{"is_deleted": false}
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_live_unique").
				SetUnique(true).
				SetPartialFilterExpression(live).
				SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys: bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().
				SetName("mobile_live_unique").
				SetUnique(true).
				SetPartialFilterExpression(live),
		},
	}
	for _, coll := range []*mongo.Collection{s.admins, s.users} {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, role eduAuth.Role, email string) (*eduAuth.Principal, error) {
	return s.findOne(ctx, role, emailFilter(email))
}

func (s *Store) FindByMobile(ctx context.Context, role eduAuth.Role, mobile string) (*eduAuth.Principal, error) {
	return s.findOne(ctx, role, bson.M{"mobile": strings.TrimSpace(mobile)})
}

func (s *Store) FindByID(ctx context.Context, role eduAuth.Role, id string) (*eduAuth.Principal, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, eduAuth.ErrPrincipalNotFound
	}
	return s.findOne(ctx, role, bson.M{"_id": oid})
}

func (s *Store) Exists(ctx context.Context, role eduAuth.Role, field eduAuth.LookupField, value string) (bool, error) {
	coll, err := s.collection(role)
	if err != nil {
		return false, err
	}

	var filter bson.M
	switch field {
	case eduAuth.FieldEmail:
		filter = emailFilter(value)
	case eduAuth.FieldMobile:
		filter = bson.M{"mobile": strings.TrimSpace(value)}
	default:
		return false, fmt.Errorf("unsupported lookup field %q", field)
	}
	filter["is_deleted"] = false

	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return n > 0, nil
}

func (s *Store) Create(ctx context.Context, p *eduAuth.Principal) (*eduAuth.Principal, error) {
	coll, err := s.collection(p.Role)
	if err != nil {
		return nil, err
	}
	doc, err := toDocument(p)
	if err != nil {
		return nil, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, eduAuth.ErrDuplicatePrincipal
		}
		return nil, fmt.Errorf("insert %s: %w", coll.Name(), err)
	}
	return doc.principal(p.Role), nil
}

func (s *Store) Save(ctx context.Context, p *eduAuth.Principal) error {
	coll, err := s.collection(p.Role)
	if err != nil {
		return err
	}
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return eduAuth.ErrPrincipalNotFound
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return eduAuth.ErrDuplicatePrincipal
		}
		return fmt.Errorf("replace %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return eduAuth.ErrPrincipalNotFound
	}
	return nil
}

// findOne prefers a live document over a soft-deleted one.
func (s *Store) findOne(ctx context.Context, role eduAuth.Role, filter bson.M) (*eduAuth.Principal, error) {
	coll, err := s.collection(role)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "is_deleted", Value: 1}, {Key: "updated_at", Value: -1}})
	var doc principalDocument
	if err := coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, eduAuth.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	return doc.principal(role), nil
}

func emailFilter(email string) bson.M {
	return bson.M{"email": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(email)) + "$",
		Options: "i",
	}}
}

var _ eduAuth.Directory = (*Store)(nil)
